//go:build onnx
// +build onnx

package anonymizer

import (
	"fmt"
	"math"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// onnxNERBackend scores person-name likelihood with a token-classification
// model via ONNX Runtime. Requires build tag 'onnx'.
type onnxNERBackend struct {
	session *ort.DynamicAdvancedSession
	logger  *zap.Logger
	ready   bool
	mu      sync.RWMutex
}

// NewNERBackend initializes the ONNX Runtime NER backend. The shared library
// path can be overridden via ONNXRUNTIME_SHARED_LIBRARY_PATH.
func NewNERBackend(logger *zap.Logger, modelPath string) NERBackend {
	if modelPath == "" {
		return nil
	}
	if libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			logger.Warn("ONNX Runtime initialization failed, NER signal disabled",
				zap.Error(err))
			return nil
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		nil,
	)
	if err != nil {
		logger.Warn("Failed to load NER model, signal disabled",
			zap.String("model_path", modelPath),
			zap.Error(err))
		return nil
	}

	logger.Info("NER backend initialized",
		zap.String("model_path", modelPath))

	return &onnxNERBackend{
		session: session,
		logger:  logger,
		ready:   true,
	}
}

func (b *onnxNERBackend) IsReady() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready
}

func (b *onnxNERBackend) ScorePerson(text string) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.ready {
		return 0, fmt.Errorf("NER backend not ready")
	}

	ids, mask := encodeBytes(text)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(ids))), ids)
	if err != nil {
		return 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	maskTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(mask))), mask)
	if err != nil {
		return 0, fmt.Errorf("failed to create mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := b.session.Run([]ort.Value{inputTensor, maskTensor}, outputs); err != nil {
		return 0, fmt.Errorf("NER inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	logits, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("unexpected NER output type")
	}

	// Mean sigmoid over the person-class logit per token.
	data := logits.GetData()
	if len(data) == 0 {
		return 0, nil
	}
	var sum float64
	for _, v := range data {
		sum += 1.0 / (1.0 + math.Exp(-float64(v)))
	}
	return sum / float64(len(data)), nil
}

func (b *onnxNERBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = false
	if b.session != nil {
		return b.session.Destroy()
	}
	return nil
}

// encodeBytes is a minimal byte-level encoding for models trained with a
// byte tokenizer. Full WordPiece support is out of scope for this backend.
func encodeBytes(text string) ([]int64, []int64) {
	raw := []byte(text)
	if len(raw) > 256 {
		raw = raw[:256]
	}
	ids := make([]int64, len(raw))
	mask := make([]int64, len(raw))
	for i, c := range raw {
		ids[i] = int64(c)
		mask[i] = 1
	}
	return ids, mask
}
