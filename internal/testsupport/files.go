package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// Payload returns size bytes of a repeating pattern. A size <= 0 yields a
// single byte.
func Payload(size int) []byte {
	if size <= 0 {
		size = 1
	}
	return bytes.Repeat([]byte{0x42}, size)
}

// WriteFile creates path and its parent directories with data.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
