// Package features turns a corpus of token-embedding matrices into normalized
// feature vectors, one per document, processing batches in parallel.
package features

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/embedding"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/normalize"
	"github.com/hyperjump/bunrui/internal/pooling"
	"github.com/hyperjump/bunrui/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const opExtract = "extract"

// Extractor pools and normalizes documents with a fixed strategy and law.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	strategy   pooling.Strategy
	law        normalize.Law
	opts       normalize.Options
	dimensions int
	workers    int
	batchSize  int
	logger     *zap.Logger
}

// NewExtractor validates cfg and builds an Extractor. logger may be nil.
func NewExtractor(cfg *config.FeaturesConfig, logger *zap.Logger) (*Extractor, error) {
	strategy, err := pooling.ParseStrategy(cfg.Pooling)
	if err != nil {
		return nil, err
	}
	law, err := normalize.ParseLaw(cfg.Normalization)
	if err != nil {
		return nil, err
	}
	if cfg.MaxDecimalExponent < 0 {
		return nil, fmt.Errorf("max_decimal_exponent must not be negative: %d", cfg.MaxDecimalExponent)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Extractor{
		strategy: strategy,
		law:      law,
		opts: normalize.Options{
			NewMin:         cfg.NewMin,
			NewMax:         cfg.NewMax,
			MaxExponent:    cfg.MaxDecimalExponent,
			AllowNonFinite: cfg.AllowNonFinite,
		},
		dimensions: cfg.Dimensions,
		workers:    workers,
		batchSize:  batchSize,
		logger:     utils.OrNop(logger),
	}, nil
}

// Strategy returns the pooling strategy in use.
func (e *Extractor) Strategy() pooling.Strategy { return e.strategy }

// Law returns the normalization law in use.
func (e *Extractor) Law() normalize.Law { return e.law }

// Options returns the normalization options in use.
func (e *Extractor) Options() normalize.Options { return e.opts }

// Dimensions returns the enforced vector dimension, or 0 when unenforced.
func (e *Extractor) Dimensions() int { return e.dimensions }

// Workers returns the maximum number of concurrent batches.
func (e *Extractor) Workers() int { return e.workers }

// Extract pools then normalizes every matrix. Output order matches input
// order. The first failing document aborts the run; its error carries the
// document's index in matrices.
func (e *Extractor) Extract(ctx context.Context, matrices []models.Matrix) (*models.FeatureSet, error) {
	return e.extract(ctx, matrices, nil)
}

// ExtractMasked is Extract for padded matrices: masks[i] marks the rows of
// matrices[i] that hold real tokens, and only those rows are pooled.
func (e *Extractor) ExtractMasked(ctx context.Context, matrices []models.Matrix, masks [][]int64) (*models.FeatureSet, error) {
	if len(masks) != len(matrices) {
		return nil, models.NewShapeMismatch(opExtract, "masks", len(matrices), len(masks))
	}
	return e.extract(ctx, matrices, masks)
}

func (e *Extractor) extract(ctx context.Context, matrices []models.Matrix, masks [][]int64) (*models.FeatureSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	n := len(matrices)
	set := &models.FeatureSet{
		BatchID:       uuid.NewString(),
		Pooling:       string(e.strategy),
		Normalization: string(e.law),
		Dimensions:    e.dimensions,
		Vectors:       make([]models.Vector, n),
	}
	if e.law == normalize.LawDecimal {
		set.Divisors = make([]float64, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for lo := 0; lo < n; lo += e.batchSize {
		lo := lo
		hi := min(lo+e.batchSize, n)
		g.Go(func() error {
			return e.runBatch(gctx, matrices, masks, set, lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Warn("feature extraction failed",
			zap.String("batch_id", set.BatchID),
			zap.Int("documents", n),
			zap.Error(err),
		)
		return nil, err
	}

	if n > 0 {
		width := len(set.Vectors[0])
		for i, v := range set.Vectors {
			if len(v) != width {
				err := models.NewShapeMismatch(opExtract, "dimension", width, len(v))
				err.Index = i
				return nil, err
			}
		}
		set.Dimensions = width
	}
	set.ElapsedMillis = time.Since(start).Milliseconds()
	e.logger.Debug("features extracted",
		zap.String("batch_id", set.BatchID),
		zap.Int("documents", n),
		zap.String("pooling", set.Pooling),
		zap.String("normalization", set.Normalization),
		zap.Int64("elapsed_ms", set.ElapsedMillis),
	)
	return set, nil
}

// ExtractTexts embeds every text with embedder and extracts features from the
// result. Embedders that expose padded encodings are pooled through their
// attention masks.
func (e *Extractor) ExtractTexts(ctx context.Context, embedder embedding.TokenEmbedder, texts []string) (*models.FeatureSet, error) {
	masked, ok := embedder.(embedding.MaskedTokenEmbedder)
	if !ok {
		matrices, err := embedder.EmbedTokensBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed texts: %w", err)
		}
		return e.Extract(ctx, matrices)
	}

	matrices := make([]models.Matrix, len(texts))
	masks := make([][]int64, len(texts))
	for i, text := range texts {
		m, mask, err := masked.EmbedTokensMasked(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		matrices[i], masks[i] = m, mask
	}
	return e.ExtractMasked(ctx, matrices, masks)
}

func (e *Extractor) runBatch(ctx context.Context, matrices []models.Matrix, masks [][]int64, set *models.FeatureSet, lo, hi int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.logger.Debug("batch started", zap.String("batch_id", set.BatchID), zap.Int("from", lo), zap.Int("to", hi))
	for i := lo; i < hi; i++ {
		var pooled models.Vector
		var err error
		if masks != nil {
			pooled, err = pooling.Masked(matrices[i], masks[i], e.strategy)
		} else {
			pooled, err = e.strategy.Reduce(matrices[i])
		}
		if err != nil {
			return models.AtIndex(err, i)
		}
		if e.dimensions > 0 && len(pooled) != e.dimensions {
			err := models.NewShapeMismatch(opExtract, "dimension", e.dimensions, len(pooled))
			err.Index = i
			return err
		}
		out, p, err := normalize.Vector(pooled, e.law, e.opts)
		if err != nil {
			return models.AtIndex(err, i)
		}
		set.Vectors[i] = out
		if set.Divisors != nil {
			set.Divisors[i] = p
		}
	}
	return nil
}
