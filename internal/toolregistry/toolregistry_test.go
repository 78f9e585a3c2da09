package toolregistry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCanonicalAndAlias(t *testing.T) {
	r := New()
	r.Register(Entry{ID: "read_file", Category: "filesystem", Tier: Tier1, CLIAlias: "read", IDEAlias: "fs.read", Available: true})

	e, err := r.Resolve("read_file")
	require.NoError(t, err)
	require.Equal(t, "read_file", e.ID)

	e, err = r.Resolve("read")
	require.NoError(t, err)
	require.Equal(t, "read_file", e.ID)

	e, err = r.Resolve("fs.read")
	require.NoError(t, err)
	require.Equal(t, "read_file", e.ID)
}

func TestResolveUnknownFails(t *testing.T) {
	r := New()
	_, err := r.Resolve("does_not_exist")
	require.Error(t, err)
}

func TestResolveUnavailableFails(t *testing.T) {
	r := New()
	r.Register(Entry{ID: "run_shell", Tier: Tier1, CLIAlias: "bash", Available: false})
	_, err := r.Resolve("bash")
	require.Error(t, err)
}

func TestDefaultCatalogueResolvesLegacyAliases(t *testing.T) {
	r := Default()
	for _, alias := range []string{"read", "write", "edit", "ls", "grep", "glob", "bash", "webfetch", "todo"} {
		_, err := r.Resolve(alias)
		require.NoErrorf(t, err, "alias %q should resolve", alias)
	}
	require.NotEmpty(t, r.IDs())
	require.Equal(t, r.IDs(), func() []string {
		ids := make([]string, 0)
		for _, e := range r.List() {
			ids = append(ids, e.ID)
		}
		return ids
	}())
}
