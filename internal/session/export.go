package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cadenroberts/OllamaBot-sub010/internal/sharing"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// ExportEnvelope is the portable file produced by `session export`,
// letting a run be resumed on another host (spec §2 overview: "a
// Session persistence contract that makes any run resumable on another
// host"). The export_id is minted by internal/sharing.GenerateToken,
// the teacher's own share-link token generator repurposed here since
// export is local-file-to-local-file, not a hosted share link.
type ExportEnvelope struct {
	ExportID string        `json:"export_id"`
	Checksum string        `json:"checksum"`
	Session  types.Session `json:"session"`
}

// Export serialises sess into a self-contained, checksummed envelope
// and writes it to path.
func Export(ctx context.Context, sess *types.Session, path string) (*ExportEnvelope, error) {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("session: marshal for export: %w", err)
	}
	sum := sha256.Sum256(data)

	exportID, err := sharing.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("session: generate export id: %w", err)
	}

	envelope := &ExportEnvelope{
		ExportID: exportID,
		Checksum: hex.EncodeToString(sum[:]),
		Session:  *sess,
	}
	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("session: marshal export envelope: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return nil, fmt.Errorf("session: write export file %q: %w", path, err)
	}
	return envelope, nil
}

// Import reads and verifies an export envelope previously produced by
// Export, rejecting a file whose content no longer matches its
// checksum.
func Import(ctx context.Context, path string) (*types.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read export file %q: %w", path, err)
	}
	var envelope ExportEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("session: unmarshal export envelope: %w", err)
	}

	sessData, err := json.MarshalIndent(envelope.Session, "", "  ")
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(sessData)
	if hex.EncodeToString(sum[:]) != envelope.Checksum {
		return nil, fmt.Errorf("session: export file %q failed checksum verification", path)
	}
	return &envelope.Session, nil
}
