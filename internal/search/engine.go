package search

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fotobox/facesearch/internal/drive"
	"github.com/fotobox/facesearch/internal/embedding"
	"github.com/fotobox/facesearch/internal/metrics"
)

// Search scores every candidate against the query embedding and returns the
// candidates within the threshold, most similar first. The threshold bound is
// inclusive: a candidate at exactly the threshold distance matches.
//
// Candidates are processed independently by a bounded worker pool; a failed
// download, an undecodable image, or a faceless image excludes that candidate
// without affecting the rest of the batch. The engine keeps no state between
// calls.
func (s *Service) Search(ctx context.Context, query []float32, candidates []drive.File, threshold float64) ([]Match, Stats) {
	outcomes := s.collectOutcomes(ctx, query, candidates)

	stats := Stats{
		Candidates: len(candidates),
		Skipped:    make(map[SkipReason]int),
	}

	matches := make([]Match, 0, len(outcomes))
	for _, outcome := range outcomes {
		if !outcome.Scored() {
			stats.Skipped[outcome.Skip]++
			metrics.ObserveCandidate(string(outcome.Skip))
			continue
		}
		stats.Scored++
		metrics.ObserveCandidate("scored")
		if outcome.Distance <= threshold {
			matches = append(matches, Match{File: outcome.File, Distance: outcome.Distance})
		}
	}
	stats.Matched = len(matches)

	// Stable sort keeps enumeration order for equal distances, so identical
	// inputs always rank identically.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	return matches, stats
}

// collectOutcomes fans candidates out to the worker pool and joins the full
// outcome set before returning; no partial result ever escapes.
func (s *Service) collectOutcomes(ctx context.Context, query []float32, candidates []drive.File) []Result {
	return s.fanOut(len(candidates), func(i int) Result {
		return s.scoreCandidate(ctx, query, candidates[i])
	})
}

// fanOut runs the per-candidate function on a bounded worker pool and joins
// all outcomes. Outcomes are indexed by candidate position, preserving
// enumeration order.
func (s *Service) fanOut(n int, process func(int) Result) []Result {
	outcomes := make([]Result, n)

	workers := s.concurrency
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = process(i)
				if s.onCandidate != nil {
					s.onCandidate(outcomes[i])
				}
			}
		}()
	}

	for i := range n {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// scoreCandidate runs the fetch-embed-score sequence for one candidate.
// Every failure mode maps to an explicit skip; a skipped candidate is
// excluded from consideration, never counted as a non-match.
func (s *Service) scoreCandidate(ctx context.Context, query []float32, file drive.File) Result {
	result := s.fetchEmbedding(ctx, file)
	if result.Scored() {
		result.Distance = embedding.EuclideanDistance(query, result.Embedding)
	}
	return result
}

// fetchEmbedding downloads one candidate and extracts its first-face
// embedding, mapping every failure mode to an explicit skip.
func (s *Service) fetchEmbedding(ctx context.Context, file drive.File) Result {
	// A request past its deadline treats the remaining candidates the same
	// as failed fetches: skipped, not scored.
	if ctx.Err() != nil {
		return Result{File: file, Skip: SkipCancelled}
	}

	data, _, err := s.store.Download(ctx, file.ID)
	if err != nil {
		if ctx.Err() != nil {
			return Result{File: file, Skip: SkipCancelled}
		}
		s.logger.Warn("skipping candidate, download failed",
			zap.String("file_id", file.ID), zap.Error(err))
		return Result{File: file, Skip: SkipDownload}
	}

	emb, err := s.embedder.FirstFaceEmbedding(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return Result{File: file, Skip: SkipCancelled}
		}
		s.logger.Warn("skipping candidate, embedding failed",
			zap.String("file_id", file.ID), zap.Error(err))
		return Result{File: file, Skip: SkipEmbed}
	}
	if emb == nil {
		return Result{File: file, Skip: SkipNoFace}
	}

	return Result{File: file, Embedding: emb}
}
