package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// batchSize bounds how many texts go through one inference call.
const batchSize = 32

// The ONNX Runtime environment is process-wide and may only be initialized once.
var ortEnv struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// DenseProvider runs a BERT-style sentence-embedding model (for example
// all-MiniLM-L6-v2) with ONNX Runtime: WordPiece tokenization, inference,
// attention-masked mean pooling and L2 normalization.
type DenseProvider struct {
	session *ort.DynamicAdvancedSession
	tok     *tokenizer
	output  string
	dim     int64
	model   string
}

// NewDense loads the model, vocabulary and runtime library. Any missing file
// or incompatible model is reported as an error so callers can fall back.
func NewDense(modelPath, vocabPath, runtimePath string) (*DenseProvider, error) {
	for _, path := range []string{modelPath, vocabPath, runtimePath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("dense embedding: %w", err)
		}
	}

	if err := initRuntime(runtimePath); err != nil {
		return nil, fmt.Errorf("dense embedding: initialize onnx runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("dense embedding: read model info: %w", err)
	}
	inputNames, err := requireInputs(inputs)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("dense embedding: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 || dims[2] <= 0 {
		return nil, fmt.Errorf("dense embedding: expected [batch, seq, dim] output, got %v", dims)
	}

	tok, err := newTokenizer(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("dense embedding: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("dense embedding: session options: %w", err)
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("dense embedding: create session: %w", err)
	}

	return &DenseProvider{
		session: session,
		tok:     tok,
		output:  outputs[0].Name,
		dim:     dims[2],
		model:   filepath.Base(filepath.Dir(modelPath)),
	}, nil
}

func requireInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	names := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range names {
		if !have[name] {
			return nil, fmt.Errorf("dense embedding: model is missing input %q", name)
		}
	}
	return names, nil
}

func (p *DenseProvider) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dense embedding: %w", err)
		}
		end := min(start+batchSize, len(texts))
		vecs, err := p.embedBatch(texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (p *DenseProvider) embedBatch(texts []string) ([]Vector, error) {
	b := p.tok.encodeBatch(texts)
	shape := ort.NewShape(b.size, b.seqLen)

	ids, err := ort.NewTensor(shape, b.inputIDs)
	if err != nil {
		return nil, fmt.Errorf("dense embedding: input_ids tensor: %w", err)
	}
	defer ids.Destroy()

	mask, err := ort.NewTensor(shape, b.attentionMask)
	if err != nil {
		return nil, fmt.Errorf("dense embedding: attention_mask tensor: %w", err)
	}
	defer mask.Destroy()

	types, err := ort.NewTensor(shape, b.tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("dense embedding: token_type_ids tensor: %w", err)
	}
	defer types.Destroy()

	hidden, err := ort.NewEmptyTensor[float32](ort.NewShape(b.size, b.seqLen, p.dim))
	if err != nil {
		return nil, fmt.Errorf("dense embedding: output tensor: %w", err)
	}
	defer hidden.Destroy()

	if err := p.session.Run([]ort.Value{ids, mask, types}, []ort.Value{hidden}); err != nil {
		return nil, fmt.Errorf("dense embedding: inference: %w", err)
	}

	pooled := meanPool(hidden.GetData(), b.attentionMask, b.size, b.seqLen, p.dim)
	vecs := make([]Vector, b.size)
	for i := range vecs {
		v := make(Vector, p.dim)
		copy(v, pooled[int64(i)*p.dim:int64(i+1)*p.dim])
		normalize(v)
		vecs[i] = v
	}
	return vecs, nil
}

// meanPool averages the hidden states of non-padding tokens.
// hidden is [size * seqLen * dim], mask is [size * seqLen], the result is [size * dim].
func meanPool(hidden []float32, mask []int64, size, seqLen, dim int64) []float32 {
	out := make([]float32, size*dim)
	for b := int64(0); b < size; b++ {
		var count float32
		for s := int64(0); s < seqLen; s++ {
			if mask[b*seqLen+s] != 1 {
				continue
			}
			count++
			tok := hidden[(b*seqLen+s)*dim : (b*seqLen+s+1)*dim]
			row := out[b*dim : (b+1)*dim]
			for d := range row {
				row[d] += tok[d]
			}
		}
		if count == 0 {
			continue
		}
		row := out[b*dim : (b+1)*dim]
		for d := range row {
			row[d] /= count
		}
	}
	return out
}

func (p *DenseProvider) Strategy() Strategy { return StrategyDense }

func (p *DenseProvider) Dimension() int { return int(p.dim) }

func (p *DenseProvider) Model() string { return p.model }

func (p *DenseProvider) Close() error {
	if p.session != nil {
		return p.session.Destroy()
	}
	return nil
}
