// Package session implements the Session Store (spec §4.9) plus the
// supplemented session-lifecycle features named in SPEC_FULL.md §10:
// context compaction, title generation, export, and agent/session fork
// for Judge re-runs. Persistence is built directly on
// internal/storage.Storage, reused unmodified for its atomic
// write-temp-then-rename + flock guarantees; this package adds the
// content-addressed single-file layout, legacy-directory migration, and
// checkpoint snapshotting spec §4.9 asks for on top of it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cadenroberts/OllamaBot-sub010/internal/errconf"
	"github.com/cadenroberts/OllamaBot-sub010/internal/storage"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Store persists Sessions and Checkpoints as one file per id (preferred
// layout) under basePath, transparently migrating the legacy
// directory-of-shards layout on first save.
type Store struct {
	backend *storage.Storage
}

// New builds a Store rooted at basePath (e.g. <config_dir>/sessions).
func New(basePath string) *Store {
	return &Store{backend: storage.New(basePath)}
}

func sessionPath(id string) []string    { return []string{"sessions", id} }
func checkpointPath(id string) []string { return []string{"checkpoints", id} }

// Save writes s atomically, retrying a failed write three times before
// giving up with an E013 (file-system access) error. If a legacy shard
// directory for s.ID exists, it is migrated out of the way first
// (renamed with a "migrated_" prefix) so future loads never see it.
func (s *Store) Save(ctx context.Context, sess *types.Session) error {
	const retries = 3
	s.migrateLegacyIfPresent(sess.ID)
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if err = s.backend.Put(ctx, sessionPath(sess.ID), sess); err == nil {
			return nil
		}
	}
	return errconf.NewOperational(errconf.EFileSystemAccess, fmt.Sprintf("saving session %q", sess.ID), "check disk space and permissions", false, err)
}

// Load reads a session by id, transparently accepting either the
// preferred single-file layout or the legacy shard-directory layout.
func (s *Store) Load(ctx context.Context, id string) (*types.Session, error) {
	var sess types.Session
	err := s.backend.Get(ctx, sessionPath(id), &sess)
	if err == nil {
		return &sess, nil
	}
	if err != storage.ErrNotFound {
		return nil, errconf.NewOperational(errconf.ESessionCorrupt, fmt.Sprintf("loading session %q", id), "", false, err)
	}

	legacy, legacyErr := s.loadLegacyShardDir(id)
	if legacyErr != nil {
		return nil, errconf.NewOperational(errconf.ESessionCorrupt, fmt.Sprintf("session %q not found in either layout", id), "", false, legacyErr)
	}
	// Migrate on first successful legacy load, per spec §4.9.
	if saveErr := s.Save(ctx, legacy); saveErr != nil {
		return nil, saveErr
	}
	return legacy, nil
}

// List returns the sorted ids of sessions in the single-file layout. A
// legacy shard directory is not listed until a Load migrates it.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.backend.List(ctx, []string{"sessions"})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// legacyShardDir is the pre-migration directory layout: one directory
// per session id containing a "session.json" shard plus any number of
// "step_<n>.json" shards.
func (s *Store) legacyShardDir(id string) string {
	return filepath.Join(s.legacyRoot(), id)
}

func (s *Store) legacyRoot() string {
	return s.backend.BasePath()
}

func (s *Store) loadLegacyShardDir(id string) (*types.Session, error) {
	dir := s.legacyShardDir(id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("session: no legacy directory for %q", id)
	}

	data, err := os.ReadFile(filepath.Join(dir, "session.json"))
	if err != nil {
		return nil, fmt.Errorf("session: legacy session.json missing for %q: %w", id, err)
	}
	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session: legacy session.json corrupt for %q: %w", id, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var steps []types.Step
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "step_") {
			continue
		}
		stepData, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var step types.Step
		if err := json.Unmarshal(stepData, &step); err != nil {
			continue
		}
		steps = append(steps, step)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Ordinal < steps[j].Ordinal })
	if len(steps) > 0 {
		sess.Steps = steps
	}
	return &sess, nil
}

func (s *Store) migrateLegacyIfPresent(id string) {
	dir := s.legacyShardDir(id)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		migrated := filepath.Join(s.legacyRoot(), "migrated_"+id)
		_ = os.Rename(dir, migrated)
	}
}

// SaveCheckpoint persists a labelled snapshot of sess at its current
// step count.
func (s *Store) SaveCheckpoint(ctx context.Context, sess *types.Session, label string) (*types.Checkpoint, error) {
	cp := &types.Checkpoint{
		ID:        checkpointID(sess.ID, len(sess.Steps)),
		Label:     label,
		SessionID: sess.ID,
		StepCount: len(sess.Steps),
		CreatedAt: nowUnix(),
		Snapshot:  *sess,
	}
	if err := s.backend.Put(ctx, checkpointPath(cp.ID), cp); err != nil {
		return nil, errconf.NewOperational(errconf.EFileSystemAccess, fmt.Sprintf("saving checkpoint %q", cp.ID), "", false, err)
	}
	sess.Checkpoints = append(sess.Checkpoints, *cp)
	return cp, nil
}

// LoadCheckpoint retrieves a previously saved checkpoint by id.
func (s *Store) LoadCheckpoint(ctx context.Context, id string) (*types.Checkpoint, error) {
	var cp types.Checkpoint
	if err := s.backend.Get(ctx, checkpointPath(id), &cp); err != nil {
		if err == storage.ErrNotFound {
			return nil, errconf.NewOperational(errconf.ECheckpointNotFound, fmt.Sprintf("checkpoint %q not found", id), "", false, nil)
		}
		return nil, err
	}
	return &cp, nil
}

// ListCheckpoints returns every checkpoint id belonging to sessionID.
func (s *Store) ListCheckpoints(ctx context.Context, sessionID string) ([]string, error) {
	all, err := s.backend.List(ctx, []string{"checkpoints"})
	if err != nil {
		return nil, err
	}
	var out []string
	prefix := sessionID + "-"
	for _, id := range all {
		if strings.HasPrefix(id, prefix) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Restore loads a checkpoint and returns its captured snapshot, ready
// to be saved back as the live session.
func (s *Store) Restore(ctx context.Context, checkpointID string) (*types.Session, error) {
	cp, err := s.LoadCheckpoint(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	restored := cp.Snapshot
	return &restored, nil
}

func checkpointID(sessionID string, stepCount int) string {
	return fmt.Sprintf("%s-step%04d-%d", sessionID, stepCount, nowUnix())
}

func nowUnix() int64 { return time.Now().Unix() }
