package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// downloadChunkSize is the Range window for chunked content downloads.
// Event photos are a few MB each, so most complete in one or two chunks.
const downloadChunkSize = 8 << 20

// Download retrieves the raw content of a file via files.get?alt=media,
// assembled from sequential Range reads. Any failure anywhere in the chunk
// sequence surfaces as a single error for this file; other downloads are
// unaffected. Returns the content bytes and the declared content type.
func (c *Client) Download(ctx context.Context, id string) ([]byte, string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("could not get access token: %w", err)
	}

	endpoint := c.resolveURL(fmt.Sprintf("files/%s?alt=media", url.PathEscape(id)))

	var buf bytes.Buffer
	contentType := ""
	offset := int64(0)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, "", fmt.Errorf("could not create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+downloadChunkSize-1))

		done, ct, err := c.readChunk(req, &buf)
		if err != nil {
			return nil, "", fmt.Errorf("could not download file %s: %w", id, err)
		}
		if contentType == "" {
			contentType = ct
		}
		if done {
			return buf.Bytes(), contentType, nil
		}
		offset = int64(buf.Len())
	}
}

// readChunk performs one Range request and appends the payload to buf.
// Reports done when the server returned the whole file (200) or the final
// partial chunk (206 with Content-Range reaching the total size).
func (c *Client) readChunk(req *http.Request, buf *bytes.Buffer) (bool, string, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	default:
		return false, "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	if _, err := io.Copy(buf, resp.Body); err != nil {
		return false, "", fmt.Errorf("could not read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode == http.StatusOK {
		return true, contentType, nil
	}

	var start, end, total int64
	if _, err := fmt.Sscanf(resp.Header.Get("Content-Range"), "bytes %d-%d/%d", &start, &end, &total); err != nil {
		// Servers that omit Content-Range send the whole remainder in one 206.
		return true, contentType, nil
	}
	return end+1 >= total, contentType, nil
}
