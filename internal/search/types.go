// Package search implements the face-similarity pipeline: resolving a
// collection reference to candidate photos, scoring each candidate against a
// query face embedding, and shaping the ranked matches for callers.
package search

import (
	"errors"
	"time"

	"github.com/fotobox/facesearch/internal/drive"
)

// ErrInvalidReference means a collection reference was URL-shaped but carried
// no recognizable folder ID. This is an input error, never retried.
var ErrInvalidReference = errors.New("could not read folder ID from URL")

// ErrPhotoNotInCollection means a similar-photos lookup named a photo that is
// not part of the resolved collection.
var ErrPhotoNotInCollection = errors.New("photo is not part of the collection")

// SkipReason records why a candidate was excluded from scoring. Skipped
// candidates are excluded from consideration entirely; they are not
// non-matches.
type SkipReason string

const (
	// SkipDownload: the candidate's content could not be retrieved.
	SkipDownload SkipReason = "download_failed"
	// SkipEmbed: the embedding service failed or could not decode the image.
	SkipEmbed SkipReason = "embedding_failed"
	// SkipNoFace: the image decoded fine but contains no detectable face.
	SkipNoFace SkipReason = "no_face"
	// SkipCancelled: the request deadline expired before the candidate was
	// processed.
	SkipCancelled SkipReason = "cancelled"
)

// Result is the per-candidate outcome of the fan-out stage. Exactly one of
// the two states holds: scored (Skip empty, Distance set) or skipped.
type Result struct {
	File      drive.File
	Embedding []float32
	Distance  float64
	Skip      SkipReason
}

// Scored reports whether the candidate produced a usable distance.
func (r Result) Scored() bool {
	return r.Skip == ""
}

// Match is a candidate that passed the distance threshold. Internal to the
// pipeline; the distance never leaves the process.
type Match struct {
	File     drive.File
	Distance float64
}

// Stats summarizes one search run for logging and metrics.
type Stats struct {
	Candidates int
	Scored     int
	Matched    int
	Skipped    map[SkipReason]int
}

// MatchResult is the externally visible shape of a match. CapturedAt is
// always null: Drive listings carry no capture-time metadata, and the field
// exists so gallery frontends have a stable contract if a source appears.
type MatchResult struct {
	PhotoID    string     `json:"photo_id"`
	ViewURL    string     `json:"drive_view_url"`
	ThumbURL   string     `json:"drive_thumb_url"`
	CapturedAt *time.Time `json:"captured_at"`
}
