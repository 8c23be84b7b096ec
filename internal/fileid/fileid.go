// Package fileid derives stable identifiers from file paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// keyBytes is the number of hash bytes kept in a Key.
const keyBytes = 8

// Abs returns the cleaned absolute form of path, or the cleaned path itself
// when the working directory cannot be resolved.
func Abs(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Key returns a short hex identifier for path. Spellings of the same file
// ("m.gguf", "./m.gguf", the absolute path) share a key.
func Key(path string) string {
	sum := sha256.Sum256([]byte(Abs(path)))
	return hex.EncodeToString(sum[:keyBytes])
}
