// Package request holds inbound request shapes and their validation.
package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"vidrelay/internal/entity"
	"vidrelay/internal/errs"
	"vidrelay/pkg/urls"
)

// reQuality matches quality labels like "360p", "720p", "1080p".
var reQuality = regexp.MustCompile(`^(\d{3,4})p$`)

// Info is the body of a media info lookup.
type Info struct {
	URL string `json:"url"`
}

// Validate checks that the URL is an absolute http(s) URL.
func (i *Info) Validate() error {
	if !urls.IsValid(i.URL) {
		return errs.ErrInvalidURL
	}

	return nil
}

// DecodeInfo parses an info lookup body.
func DecodeInfo(r *http.Request) (Info, error) {
	var in Info
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return Info{}, fmt.Errorf("%w: %w", errs.ErrInvalidRequestBody, err)
	}

	return in, nil
}

// ParseDownload builds a DownloadRequest from query parameters. The quality
// parameter is required for video and ignored for other kinds; clientId is
// always optional.
func ParseDownload(r *http.Request, kind entity.Kind) (entity.DownloadRequest, error) {
	q := r.URL.Query()

	req := entity.DownloadRequest{
		URL:      q.Get("url"),
		Kind:     kind,
		ClientID: q.Get("clientId"),
	}

	if !urls.IsValid(req.URL) {
		return entity.DownloadRequest{}, errs.ErrInvalidURL
	}

	if kind == entity.KindVideo {
		match := reQuality.FindStringSubmatch(q.Get("quality"))
		if match == nil {
			return entity.DownloadRequest{}, errs.ErrInvalidQuality
		}

		height, err := strconv.Atoi(match[1])
		if err != nil {
			return entity.DownloadRequest{}, errs.ErrInvalidQuality
		}

		req.Height = height
	}

	return req, nil
}
