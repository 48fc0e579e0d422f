package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fotobox/facesearch/internal/search"
)

// maxUploadSize bounds the query selfie upload. Phone camera photos stay
// well under this.
const maxUploadSize = 25 << 20

// maxThreshold bounds per-request threshold overrides. Euclidean distances
// between normalized face embeddings never exceed 2, so anything above that
// is a caller mistake.
const maxThreshold = 2.0

// SearchHandler handles face search endpoints.
type SearchHandler struct {
	service *search.Service
	logger  *zap.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *search.Service, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// SearchResponse is the face search response envelope.
type SearchResponse struct {
	Matches []search.MatchResult `json:"matches"`
}

// FaceSearch handles POST /face-search: a multipart form with the query
// selfie under "file" and the collection reference under "folder", plus an
// optional per-request "threshold" override.
//
// Malformed references are the caller's fault (400); credential and
// infrastructure failures are ours (500). Everything else — no face in the
// query, unreachable candidates, no matches — is a normal 200 with a
// possibly empty match list.
func (h *SearchHandler) FaceSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	folder := r.FormValue("folder")
	if folder == "" {
		respondError(w, http.StatusBadRequest, "folder is required")
		return
	}

	threshold, errMsg := parseThreshold(r.FormValue("threshold"))
	if errMsg != "" {
		respondError(w, http.StatusBadRequest, errMsg)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	queryImage, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	matches, _, err := h.service.SearchImage(r.Context(), queryImage, folder, threshold)
	if err != nil {
		if errors.Is(err, search.ErrInvalidReference) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("face search failed",
			zap.String("folder", sanitizeForLog(folder)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "face search failed")
		return
	}

	respondJSON(w, http.StatusOK, SearchResponse{Matches: matches})
}

// parseThreshold validates the optional threshold form field. Empty means
// "use the configured default" and is returned as zero.
func parseThreshold(raw string) (float64, string) {
	if raw == "" {
		return 0, ""
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || t <= 0 || t > maxThreshold {
		return 0, "threshold must be a number in (0, 2]"
	}
	return t, ""
}

// SimilarRequest is the request body for similar-photo lookups.
type SimilarRequest struct {
	Folder  string `json:"folder"`
	PhotoID string `json:"photo_id"`
	Limit   int    `json:"limit"`
}

// Similar handles POST /api/v1/similar: given a folder reference and a photo
// inside it, return the photos with the most similar faces.
func (h *SearchHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Folder == "" {
		respondError(w, http.StatusBadRequest, "folder is required")
		return
	}
	if req.PhotoID == "" {
		respondError(w, http.StatusBadRequest, "photo_id is required")
		return
	}

	matches, err := h.service.Similar(r.Context(), req.Folder, req.PhotoID, req.Limit)
	if err != nil {
		if errors.Is(err, search.ErrInvalidReference) || errors.Is(err, search.ErrPhotoNotInCollection) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("similar lookup failed",
			zap.String("photo_id", sanitizeForLog(req.PhotoID)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "similar lookup failed")
		return
	}

	respondJSON(w, http.StatusOK, SearchResponse{Matches: matches})
}
