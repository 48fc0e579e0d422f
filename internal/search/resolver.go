package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fotobox/facesearch/internal/drive"
)

// folderRefPattern extracts the folder ID from a Drive folder URL, e.g.
// https://drive.google.com/drive/folders/<id>?usp=sharing.
var folderRefPattern = regexp.MustCompile(`/folders/([a-zA-Z0-9_-]+)`)

// ExtractCollectionID normalizes a collection reference into a canonical
// Drive ID. Non-URL references are used verbatim; URL-shaped references must
// contain a /folders/<id> path segment or the reference is rejected with
// ErrInvalidReference.
func ExtractCollectionID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "http") {
		return ref, nil
	}

	m := folderRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", ErrInvalidReference
	}
	return m[1], nil
}

// Resolve turns a collection reference into the ordered set of candidate
// photos it denotes.
func (s *Service) Resolve(ctx context.Context, ref string) ([]drive.File, error) {
	id, err := ExtractCollectionID(ref)
	if err != nil {
		return nil, err
	}
	return s.resolveCandidates(ctx, id)
}

// resolveCandidates classifies a canonical ID as a single image or a folder.
// A bare ID is ambiguous until probed: if the ID turns out to be a single
// image file, that one file is the whole candidate set. A failed probe is
// inconclusive, not fatal — the ID is then treated as a folder and its image
// children enumerated.
func (s *Service) resolveCandidates(ctx context.Context, id string) ([]drive.File, error) {
	file, err := s.store.ProbeImageFile(ctx, id)
	if err != nil {
		s.logger.Debug("file probe inconclusive, treating reference as folder",
			zap.String("id", id), zap.Error(err))
	}
	if err == nil && file != nil {
		return []drive.File{*file}, nil
	}

	files, err := s.store.ListImageChildren(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not enumerate collection %s: %w", id, err)
	}
	return files, nil
}
