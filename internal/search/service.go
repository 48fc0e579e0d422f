package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fotobox/facesearch/internal/drive"
	"github.com/fotobox/facesearch/internal/metrics"
)

// Store is the slice of the Drive client the pipeline depends on.
type Store interface {
	ProbeImageFile(ctx context.Context, id string) (*drive.File, error)
	ListImageChildren(ctx context.Context, folderID string) ([]drive.File, error)
	Download(ctx context.Context, id string) ([]byte, string, error)
}

// Embedder extracts the first-face embedding from raw image bytes.
// A faceless image returns (nil, nil).
type Embedder interface {
	FirstFaceEmbedding(ctx context.Context, imageData []byte) ([]float32, error)
}

// Service runs face searches over Drive collections. One Service is shared
// by all requests; it holds no per-request state.
type Service struct {
	store       Store
	embedder    Embedder
	links        drive.Links
	logger       *zap.Logger
	threshold    float64
	concurrency  int
	similarLimit int
	onCandidate  func(Result)
}

// Options tune the pipeline. Zero values fall back to sensible defaults.
type Options struct {
	// Threshold is the default maximum face distance for a match.
	Threshold float64
	// Concurrency bounds the candidate worker pool. Unbounded fan-out would
	// hit Drive rate limits, so this stays small.
	Concurrency int
	// SimilarLimit is the default result count for similar-photo lookups.
	SimilarLimit int
	// OnCandidate, if set, is invoked once per processed candidate. Used by
	// the CLI for progress reporting; may be called from multiple workers.
	OnCandidate func(Result)
}

// NewService creates a search service.
func NewService(store Store, embedder Embedder, links drive.Links, logger *zap.Logger, opts Options) *Service {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.6
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.SimilarLimit <= 0 {
		opts.SimilarLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		embedder:     embedder,
		links:        links,
		logger:       logger,
		threshold:    opts.Threshold,
		concurrency:  opts.Concurrency,
		similarLimit: opts.SimilarLimit,
		onCandidate:  opts.OnCandidate,
	}
}

// Threshold returns the configured default match threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// QueryEmbedding extracts the first-face embedding from a query image.
// Returns (nil, nil) when the image contains no detectable face.
func (s *Service) QueryEmbedding(ctx context.Context, queryImage []byte) ([]float32, error) {
	return s.embedder.FirstFaceEmbedding(ctx, queryImage)
}

// Download retrieves the raw content of one photo from the store.
func (s *Service) Download(ctx context.Context, id string) ([]byte, string, error) {
	return s.store.Download(ctx, id)
}

// SearchImage runs the whole pipeline for one request: embed the query
// image, resolve the collection, score every candidate, and format the
// ranked matches. threshold <= 0 selects the configured default.
//
// A query image without a detectable face short-circuits to an empty result
// before any collection listing or candidate download happens.
func (s *Service) SearchImage(ctx context.Context, queryImage []byte, ref string, threshold float64) ([]MatchResult, Stats, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}

	// Reject malformed references before doing any work.
	id, err := ExtractCollectionID(ref)
	if err != nil {
		return nil, Stats{}, err
	}

	logger := s.logger.With(zap.String("search_id", uuid.New().String()), zap.String("collection", id))
	metrics.ObserveSearch()

	queryEmbedding, err := s.embedder.FirstFaceEmbedding(ctx, queryImage)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("could not embed query image: %w", err)
	}
	if queryEmbedding == nil {
		logger.Info("no face in query image, returning empty result")
		return []MatchResult{}, Stats{}, nil
	}

	candidates, err := s.resolveCandidates(ctx, id)
	if err != nil {
		return nil, Stats{}, err
	}
	if len(candidates) == 0 {
		logger.Info("collection has no image candidates")
		return []MatchResult{}, Stats{}, nil
	}

	matches, stats := s.Search(ctx, queryEmbedding, candidates, threshold)
	logger.Info("search finished",
		zap.Int("candidates", stats.Candidates),
		zap.Int("scored", stats.Scored),
		zap.Int("matched", stats.Matched),
		zap.Float64("threshold", threshold),
	)

	return s.FormatMatches(matches), stats, nil
}
