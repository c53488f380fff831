//go:build !onnx
// +build !onnx

package anonymizer

import (
	"go.uber.org/zap"
)

// Stub implementation used when the 'onnx' build tag is not set.
func NewNERBackend(logger *zap.Logger, modelPath string) NERBackend {
	return nil
}
