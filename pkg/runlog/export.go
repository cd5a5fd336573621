package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gonzobot/gonzo/pkg/interrogate"
)

// Export writes the run as a standalone JSON file under dir, named by run ID.
// This file is the interface the assessment and content-generation
// collaborators consume.
func Export(dir string, result *interrogate.RunResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create runs dir: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run %s: %w", result.RunID, err)
	}
	path := filepath.Join(dir, result.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write run log: %w", err)
	}
	return path, nil
}
