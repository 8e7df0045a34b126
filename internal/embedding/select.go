package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"ticket-triage/pkg/config"
)

// Select resolves the embedding strategy once at startup.
//
// With strategy "auto" the dense model is tried first and any failure
// (missing model files, no ONNX Runtime library, unexpected model shape)
// falls back to a sparse provider fit on corpus. "dense" makes that failure
// fatal and "sparse" never tries the dense model.
func Select(cfg config.EmbeddingConfig, corpus []string, logger *zap.Logger) (Provider, error) {
	switch cfg.Strategy {
	case "sparse":
		logger.Info("Using sparse TF-IDF embeddings", zap.Int("corpus", len(corpus)))
		return NewSparse(corpus), nil
	case "dense", "auto", "":
	default:
		return nil, fmt.Errorf("unknown embedding strategy %q", cfg.Strategy)
	}

	dense, err := NewDense(cfg.ModelPath, cfg.VocabPath, cfg.RuntimePath)
	if err == nil {
		logger.Info("Using dense sentence embeddings",
			zap.String("model", dense.Model()),
			zap.Int("dimension", dense.Dimension()),
		)
		return dense, nil
	}
	if cfg.Strategy == "dense" {
		return nil, err
	}

	logger.Warn("Dense embeddings unavailable, falling back to TF-IDF",
		zap.Error(err),
		zap.Int("corpus", len(corpus)),
	)
	return NewSparse(corpus), nil
}
