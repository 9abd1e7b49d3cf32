package embedding

import "fmt"

// Pooling strategies for ONNX model outputs.
const (
	PoolingAuto = "auto"
	PoolingMean = "mean"
	PoolingNone = "none"
)

// ONNXOptions configures NewONNXEmbedder.
type ONNXOptions struct {
	// ModelPath is the .onnx file (e.g. an all-MiniLM-L6-v2 export).
	ModelPath string
	// VocabPath is a BERT vocab.txt; empty uses SimpleTokenizer.
	VocabPath string
	// OutputName selects the model output; empty picks sentence_embedding,
	// then last_hidden_state, then the first output.
	OutputName string
	// Pooling is auto, mean or none.
	Pooling string
	// LibraryPath overrides the onnxruntime shared library location.
	LibraryPath string
	Dimensions  int
	MaxTokens   int
}

// MeanPool averages token embeddings of a [seqLen, dims] row-major block over
// positions where mask is non-zero.
func MeanPool(hidden []float32, mask []int64, seqLen, dims int) []float32 {
	out := make([]float32, dims)
	var count float32
	for t := 0; t < seqLen && t < len(mask); t++ {
		if mask[t] == 0 {
			continue
		}
		row := hidden[t*dims : (t+1)*dims]
		for d, v := range row {
			out[d] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for d := range out {
		out[d] /= count
	}
	return out
}

// poolOutput reduces one model output of the given shape to a dims-length
// sentence vector. Shape is [1, dims] (already pooled) or [1, seqLen, dims].
func poolOutput(data []float32, shape []int64, mask []int64, dims int, pooling string) ([]float32, error) {
	switch len(shape) {
	case 2:
		if pooling == PoolingMean {
			return nil, fmt.Errorf("mean pooling needs a [1,T,D] output, got shape %v", shape)
		}
		if int(shape[1]) != dims || len(data) < dims {
			return nil, fmt.Errorf("output shape %v does not match %d dimensions", shape, dims)
		}
		out := make([]float32, dims)
		copy(out, data[:dims])
		return out, nil
	case 3:
		if pooling == PoolingNone {
			return nil, fmt.Errorf("pooling %q cannot reduce output shape %v", pooling, shape)
		}
		seqLen := int(shape[1])
		if int(shape[2]) != dims || len(data) < seqLen*dims {
			return nil, fmt.Errorf("output shape %v does not match %d dimensions", shape, dims)
		}
		return MeanPool(data, mask, seqLen, dims), nil
	default:
		return nil, fmt.Errorf("unsupported output shape %v", shape)
	}
}
