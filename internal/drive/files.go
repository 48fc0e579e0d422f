package drive

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// File represents a Drive file or folder. These are the only fields face
// search ever asks the API for.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// IsImage reports whether the file's declared MIME type is an image type.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

// fileList is the Drive files.list response envelope.
type fileList struct {
	Files         []File `json:"files"`
	NextPageToken string `json:"nextPageToken"`
}

// ProbeImageFile checks whether the given ID refers to a single image file.
// Returns the file metadata when it does and (nil, nil) when the ID exists
// but is not an image (e.g. a folder). A lookup failure is returned as an
// error; callers decide whether that is fatal — for ambiguous collection
// references it is not, the ID is then treated as a folder.
func (c *Client) ProbeImageFile(ctx context.Context, id string) (*File, error) {
	endpoint := fmt.Sprintf("files/%s?fields=%s", url.PathEscape(id), url.QueryEscape("id, name, mimeType"))
	file, err := doGetJSON[File](ctx, c, endpoint)
	if err != nil {
		return nil, err
	}
	if !file.IsImage() {
		return nil, nil
	}
	return file, nil
}

// ListImageChildren enumerates the direct children of a folder whose MIME
// type is an image, excluding trashed files. Follows pagination until the
// listing is exhausted so large galleries are fully enumerated.
func (c *Client) ListImageChildren(ctx context.Context, folderID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed = false", folderID)

	var files []File
	pageToken := ""
	for {
		endpoint := fmt.Sprintf("files?q=%s&fields=%s&pageSize=1000",
			url.QueryEscape(query),
			url.QueryEscape("nextPageToken, files(id, name, mimeType)"),
		)
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}

		page, err := doGetJSON[fileList](ctx, c, endpoint)
		if err != nil {
			return nil, fmt.Errorf("could not list folder %s: %w", folderID, err)
		}

		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}
