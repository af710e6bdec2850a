package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// manifestName is the manifest's file name inside the staging tree and the
// sealed archive.
const manifestName = "manifest.json"

// Manifest records what a restore point contains. It is written once at
// creation and never modified afterwards.
type Manifest struct {
	Name      string              `json:"name"`
	Timestamp time.Time           `json:"timestamp"`
	Creator   string              `json:"creator"`
	Categories map[string][]string `json:"categories"`
}

// writeManifest persists the manifest into the staging tree.
func writeManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// readManifest loads and validates a manifest from an extracted archive. A
// manifest that cannot be read or parsed makes the whole restore point
// unusable.
func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("restore point has no readable manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("restore point manifest is corrupt: %w", err)
	}

	if m.Name == "" || m.Categories == nil {
		return nil, fmt.Errorf("restore point manifest is incomplete")
	}
	return &m, nil
}
