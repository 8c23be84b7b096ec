package embedding

import (
	"fmt"
	"os"
)

// validateONNXArgs checks the ONNX embedder arguments before touching the runtime.
func validateONNXArgs(modelPath string, dimensions, maxTokens int) error {
	if dimensions <= 0 || maxTokens <= 1 {
		return fmt.Errorf("onnx embedder: dimensions %d and max tokens %d must be positive", dimensions, maxTokens)
	}
	info, err := os.Stat(modelPath)
	if err != nil {
		return fmt.Errorf("onnx embedder model: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("onnx embedder model %s is a directory", modelPath)
	}
	return nil
}
