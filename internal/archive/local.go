package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pageinsights/internal/clock"
)

// LocalConfig captures the parameters for the filesystem snapshot sink.
type LocalConfig struct {
	BaseDir string
}

// LocalSink writes snapshots under a base directory.
type LocalSink struct {
	baseDir string
	clock   clock.Clock
}

// NewLocalSink validates the base directory is usable and returns the
// sink.
func NewLocalSink(cfg LocalConfig, clk clock.Clock) (*LocalSink, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	return &LocalSink{baseDir: cfg.BaseDir, clock: clk}, nil
}

// SaveSnapshot writes the HTML to a content-addressed file and returns
// a file:// URI.
func (s *LocalSink) SaveSnapshot(_ context.Context, pageID string, html []byte) (string, error) {
	if strings.TrimSpace(pageID) == "" {
		return "", fmt.Errorf("page id is required")
	}

	fullPath := filepath.Join(s.baseDir, objectPath(pageID, html, s.clock.Now()))

	// Reject page ids that would escape the base directory.
	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("page id escapes base directory")
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := os.WriteFile(fullPath, html, 0o600); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return fmt.Sprintf("file://%s", fullPath), nil
}
