// Package sharing generates the random tokens session export envelopes
// use as their export_id (spec §4.9). Generalized from the teacher's
// internal/sharing, which issued tokens for hosted share links — this
// module has no hosted sharing surface (export is local-file-to-local-
// file, spec.md's Non-goals exclude any server-side front-end), so the
// rest of that package (ShareInfo, Manager, view/expiry tracking) has
// no SPEC_FULL.md component to serve and was dropped; only the token
// generator survives, exported and repurposed for export IDs.
package sharing

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateToken returns a random hex token.
func GenerateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GenerateShortCode returns a shorter random hex token, for contexts
// that want a more compact identifier than GenerateToken's.
func GenerateShortCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf)[:8], nil
}
