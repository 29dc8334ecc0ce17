package launch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Result describes a completed run
type Result struct {
	SessionID  string        `json:"session_id"`
	Browser    string        `json:"browser"`
	Extensions []string      `json:"extensions"`
	Persistent bool          `json:"persistent"`
	URL        string        `json:"url,omitempty"`
	Title      string        `json:"title,omitempty"`
	Checks     []CheckResult `json:"checks,omitempty"`
	Snapshot   *PageSnapshot `json:"snapshot,omitempty"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
}

// CheckResult is the outcome of one Expectation
type CheckResult struct {
	Selector string `json:"selector"`
	Expected string `json:"expected"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`
}

// Passed reports whether every expectation held
func (r *Result) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass
func (r *Result) Failed() []CheckResult {
	var failed []CheckResult
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// ArtifactWriter writes run results to a directory
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
	}
}

// EnsureDir creates the output directory
func (w *ArtifactWriter) EnsureDir() error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// ScreenshotPath returns where the page screenshot is stored
func (w *ArtifactWriter) ScreenshotPath() string {
	return filepath.Join(w.outputDir, "screenshot.png")
}

// WriteAll writes result.json and, when a snapshot was taken, snapshot.html
func (w *ArtifactWriter) WriteAll(result *Result) error {
	if err := w.EnsureDir(); err != nil {
		return err
	}

	if err := w.WriteResultJSON(result); err != nil {
		return err
	}

	if result.Snapshot != nil {
		path := filepath.Join(w.outputDir, "snapshot.html")
		if err := os.WriteFile(path, []byte(result.Snapshot.HTML+"\n"), 0600); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	return nil
}

// WriteResultJSON writes the result as indented JSON
func (w *ArtifactWriter) WriteResultJSON(result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	path := filepath.Join(w.outputDir, "result.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write result JSON: %w", err)
	}
	return nil
}
