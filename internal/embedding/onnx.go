//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/sentembed/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder uses ONNX Runtime to produce embeddings. It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session     *ort.AdvancedSession
	dimensions  int
	maxTokens   int
	pooling     string
	tokenizer   Tokenizer
	outputShape ort.Shape
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder creates an ONNX embedder. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("onnx: model path is required")
	}
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("onnx: dimensions must be positive, got %d", opts.Dimensions)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Pooling == "" {
		opts.Pooling = PoolingAuto
	}

	if !ort.IsInitialized() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	var tokenizer Tokenizer = &SimpleTokenizer{}
	if opts.VocabPath != "" {
		wp, err := LoadWordPieceTokenizer(opts.VocabPath)
		if err != nil {
			return nil, err
		}
		tokenizer = wp
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect ONNX model: %w", err)
	}
	outputName, outputRank, err := pickOutput(outputInfo, opts.OutputName)
	if err != nil {
		return nil, err
	}
	if opts.Pooling == PoolingAuto {
		opts.Pooling = PoolingNone
		if outputRank == 3 {
			opts.Pooling = PoolingMean
		}
	}
	outputShape := ort.NewShape(1, int64(opts.Dimensions))
	if opts.Pooling == PoolingMean {
		outputShape = ort.NewShape(1, int64(opts.MaxTokens), int64(opts.Dimensions))
	}

	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", opts.MaxTokens)
	inputShape := ort.NewShape(1, int64(opts.MaxTokens))

	e := &ONNXEmbedder{
		dimensions:  opts.Dimensions,
		maxTokens:   opts.MaxTokens,
		pooling:     opts.Pooling,
		tokenizer:   tokenizer,
		outputShape: outputShape,
	}
	if e.inputIDsTensor, err = ort.NewTensor(inputShape, inputIDs); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMaskTensor, err = ort.NewTensor(inputShape, attentionMask); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.outputTensor, err = ort.NewEmptyTensor[float32](outputShape); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	inputNames := []string{"input_ids", "attention_mask"}
	inputs := []ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor}
	if hasInput(inputInfo, "token_type_ids") {
		if e.tokenTypeIDsTensor, err = ort.NewTensor(inputShape, tokenTypeIDs); err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
		}
		inputNames = append(inputNames, "token_type_ids")
		inputs = append(inputs, e.tokenTypeIDsTensor)
	}

	e.session, err = ort.NewAdvancedSession(
		opts.ModelPath,
		inputNames,
		[]string{outputName},
		inputs,
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return e, nil
}

func pickOutput(outputs []ort.InputOutputInfo, want string) (name string, rank int, err error) {
	if len(outputs) == 0 {
		return "", 0, fmt.Errorf("onnx model has no outputs")
	}
	find := func(n string) (ort.InputOutputInfo, bool) {
		for _, o := range outputs {
			if o.Name == n {
				return o, true
			}
		}
		return ort.InputOutputInfo{}, false
	}
	if want != "" {
		o, ok := find(want)
		if !ok {
			return "", 0, fmt.Errorf("onnx model has no output %q", want)
		}
		return o.Name, len(o.Dimensions), nil
	}
	for _, n := range []string{"sentence_embedding", "last_hidden_state"} {
		if o, ok := find(n); ok {
			return o.Name, len(o.Dimensions), nil
		}
	}
	return outputs[0].Name, len(outputs[0].Dimensions), nil
}

func hasInput(inputs []ort.InputOutputInfo, name string) bool {
	for _, in := range inputs {
		if in.Name == name {
			return true
		}
	}
	return false
}

// Embed returns one L2-normalized embedding per text. Session runs are serialized.
func (e *ONNXEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx embedder is closed")
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := e.embedOne(text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (e *ONNXEmbedder) embedOne(text string) ([]float32, error) {
	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)

	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	if e.tokenTypeIDsTensor != nil {
		copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)
	}

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	embedding, err := poolOutput(e.outputTensor.GetData(), e.outputShape, attentionMask, e.dimensions, e.pooling)
	if err != nil {
		return nil, err
	}
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "onnx".
func (e *ONNXEmbedder) Name() string { return "onnx" }

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
