package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Files manages the upload and processed-snapshot directories.
type Files struct {
	uploadDir    string
	processedDir string
	now          func() time.Time
}

func NewFiles(uploadDir, processedDir string) (*Files, error) {
	for _, dir := range []string{uploadDir, processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Files{uploadDir: uploadDir, processedDir: processedDir, now: time.Now}, nil
}

// SaveUpload copies r into the upload directory under a sanitised form of
// filename tagged with a random suffix, and returns the stored path. The
// extension is preserved. Uploads never overwrite each other.
func (f *Files) SaveUpload(filename string, r io.Reader) (string, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("invalid upload filename %q", filename)
	}

	ext := filepath.Ext(name)
	path := filepath.Join(f.uploadDir, strings.TrimSuffix(name, ext)+"_"+shortID()+ext)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

// ProcessedPath names a new snapshot file stamped with the current time.
// Calls within the same second still get distinct names.
func (f *Files) ProcessedPath() string {
	return filepath.Join(f.processedDir, "processed_"+f.now().Format("20060102_150405")+"_"+shortID()+".csv")
}

func shortID() string {
	return uuid.NewString()[:8]
}

// SanitizeFilename strips directories and keeps letters, digits, dots,
// dashes and underscores.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	name = strings.TrimLeft(name, ".")
	return name
}
