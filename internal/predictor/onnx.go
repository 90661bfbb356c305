package predictor

import (
	"context"
	"fmt"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXModel runs a regression model exported to ONNX. The model takes a
// float32 [batch, features] input and produces a [batch, 1] output.
type ONNXModel struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	width   int
	owner   bool
}

// ONNXOptions locates the runtime library and the model graph.
type ONNXOptions struct {
	LibraryPath string
	ModelPath   string
	InputName   string
	OutputName  string
}

// NewONNXModel initializes the ONNX Runtime environment if needed and
// opens a session over the model file.
func NewONNXModel(opts ONNXOptions) (*ONNXModel, error) {
	m := &ONNXModel{width: FeatureCount}

	if !ort.IsInitialized() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
		m.owner = true
	}

	session, err := ort.NewDynamicAdvancedSession(
		opts.ModelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		nil,
	)
	if err != nil {
		if m.owner {
			ort.DestroyEnvironment()
		}
		return nil, fmt.Errorf("open onnx session %s: %w", opts.ModelPath, err)
	}

	m.session = session
	return m, nil
}

// Predict runs one batch through the session and returns a bandgap per
// row. Every row must hold FeatureCount values. Tensors are allocated per
// call; only the session run is serialized.
func (m *ONNXModel) Predict(ctx context.Context, features [][]float32) ([]float32, error) {
	if len(features) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flat := make([]float32, 0, len(features)*m.width)
	for i, row := range features {
		if len(row) != m.width {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrModel, i, len(row), m.width)
		}
		flat = append(flat, row...)
	}

	input, err := ort.NewTensor(ort.NewShape(int64(len(features)), int64(m.width)), flat)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(len(features)), 1))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer output.Destroy()

	m.mu.Lock()
	err = m.session.Run([]ort.Value{input}, []ort.Value{output})
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModel, err)
	}

	return slices.Clone(output.GetData()), nil
}

// Close releases the session and, if this model initialized it, the
// runtime environment.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.session.Destroy(); err != nil {
		return fmt.Errorf("destroy onnx session: %w", err)
	}
	if m.owner {
		return ort.DestroyEnvironment()
	}
	return nil
}
