// Package drive is a read-only client for the Google Drive v3 API, covering
// the three operations face search needs: probing a file, listing the image
// children of a folder, and downloading file content.
package drive

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fotobox/facesearch/internal/credentials"
)

const defaultBaseURL = "https://www.googleapis.com/drive/v3"

// Client represents a Google Drive API client. It is safe for concurrent use;
// the token source handles its own locking.
type Client struct {
	baseURL   string
	parsedURL *url.URL
	tokens    credentials.TokenSource
	client    *http.Client
}

// NewClient creates a Drive client against the public Google API endpoint.
func NewClient(tokens credentials.TokenSource) *Client {
	c, _ := NewClientWithBaseURL(tokens, defaultBaseURL)
	return c
}

// NewClientWithBaseURL creates a Drive client against a custom endpoint.
// Used by tests to point the client at a mock server.
func NewClientWithBaseURL(tokens credentials.TokenSource, rawURL string) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Drive API URL: %w", err)
	}
	return &Client{
		baseURL:   rawURL,
		parsedURL: parsed,
		tokens:    tokens,
		client:    &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// resolveURL builds a full URL from the base API URL and the given path segments.
// If the last segment contains a query string (e.g. "files?q=..."), it is
// split so JoinPath only receives the path portion and the query is appended.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	last := pathSegments[len(pathSegments)-1]
	if pathPart, query, ok := strings.Cut(last, "?"); ok {
		pathSegments[len(pathSegments)-1] = pathPart
		result := c.parsedURL.JoinPath(pathSegments...)
		result.RawQuery = query
		return result.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// readErrorBody reads the response body for error messages.
// Returns a placeholder if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "(could not read error body)"
	}
	return string(body)
}
