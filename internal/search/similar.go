package search

import (
	"context"

	"github.com/coder/hnsw"
	"go.uber.org/zap"

	"github.com/fotobox/facesearch/internal/drive"
	"github.com/fotobox/facesearch/internal/embedding"
)

// hnswMaxNeighbors is the M parameter of the per-request HNSW graph. Event
// galleries are a few hundred photos at most, so the default works fine.
const hnswMaxNeighbors = 16

// Similar finds the photos in a collection whose first face is closest to
// the face in the given photo. The HNSW index is built per request from the
// collection's embeddings and discarded afterwards, so repeated calls stay
// independent just like Search.
//
// Returns ErrPhotoNotInCollection when the photo is not among the resolved
// candidates, and an empty list when the chosen photo has no usable face.
func (s *Service) Similar(ctx context.Context, ref, photoID string, limit int) ([]MatchResult, error) {
	if limit <= 0 {
		limit = s.similarLimit
	}

	candidates, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	found := false
	for _, f := range candidates {
		if f.ID == photoID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrPhotoNotInCollection
	}

	outcomes := s.fanOut(len(candidates), func(i int) Result {
		return s.fetchEmbedding(ctx, candidates[i])
	})

	var query []float32
	graph := hnsw.NewGraph[string]()
	graph.M = hnswMaxNeighbors
	graph.Ml = 1.0 / float64(hnswMaxNeighbors)
	graph.Distance = hnsw.EuclideanDistance

	for _, outcome := range outcomes {
		if !outcome.Scored() {
			continue
		}
		if outcome.File.ID == photoID {
			query = outcome.Embedding
			continue
		}
		graph.Add(hnsw.MakeNode(outcome.File.ID, outcome.Embedding))
	}

	if query == nil {
		s.logger.Info("similar lookup found no usable face in source photo",
			zap.String("photo_id", photoID))
		return []MatchResult{}, nil
	}

	neighbors := graph.Search(query, limit)
	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		matches = append(matches, Match{
			File:     fileByID(candidates, n.Key),
			Distance: embedding.EuclideanDistance(query, n.Value),
		})
	}

	return s.FormatMatches(matches), nil
}

// fileByID looks a candidate up by Drive ID. Only called with keys that came
// out of the candidate set, so the zero File is unreachable in practice.
func fileByID(candidates []drive.File, id string) drive.File {
	for _, f := range candidates {
		if f.ID == id {
			return f
		}
	}
	return drive.File{ID: id}
}
