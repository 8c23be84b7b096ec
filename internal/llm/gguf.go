package llm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/docqa/internal/errs"
)

var ggufMagic = []byte("GGUF")

// GGUF container versions llama.cpp can read.
const (
	ggufMinVersion = 2
	ggufMaxVersion = 3
)

// checkGGUF verifies the file header before a runtime process is spent on it.
func checkGGUF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &errs.LoadError{Kind: errs.LoadOther, Path: path, Err: err}
	}
	defer f.Close()

	header := make([]byte, 8)
	if _, err := io.ReadFull(f, header); err != nil {
		return &errs.LoadError{Kind: errs.LoadCorrupt, Path: path, Err: fmt.Errorf("file too short for a GGUF header: %w", err)}
	}
	if !bytes.Equal(header[:4], ggufMagic) {
		return &errs.LoadError{Kind: errs.LoadCorrupt, Path: path, Err: fmt.Errorf("not a GGUF file (magic %q)", header[:4])}
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v < ggufMinVersion || v > ggufMaxVersion {
		return &errs.LoadError{Kind: errs.LoadUnsupported, Path: path, Err: fmt.Errorf("GGUF version %d is not supported", v)}
	}
	return nil
}
