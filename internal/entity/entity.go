// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
)

// Kind identifies which track of a media reference is being downloaded.
type Kind string

const (
	// KindVideo downloads the merged video+audio track.
	KindVideo Kind = "video"
	// KindAudio extracts and transcodes the audio track.
	KindAudio Kind = "audio"
	// KindSubtitle fetches and converts the subtitle track.
	KindSubtitle Kind = "subtitle"
)

// Ext returns the output file extension for the kind.
func (k Kind) Ext() string {
	switch k {
	case KindAudio:
		return "mp3"
	case KindSubtitle:
		return "srt"
	default:
		return "mp4"
	}
}

// ContentType returns the response content type served for the kind.
func (k Kind) ContentType() string {
	switch k {
	case KindAudio:
		return "audio/mp3"
	case KindSubtitle:
		return "application/x-subrip"
	default:
		return "video/mp4"
	}
}

// MediaInfo is the metadata document the external tool dumps for a URL.
// Only the fields this application reads are declared.
type MediaInfo struct {
	Title      string   `json:"title"`
	Thumbnail  string   `json:"thumbnail"`
	Duration   float64  `json:"duration"`
	UploadDate string   `json:"upload_date"`
	Formats    []Format `json:"formats"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (m MediaInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("title", m.Title),
		slog.String("upload_date", m.UploadDate),
		slog.Float64("duration", m.Duration),
		slog.Int("formats", len(m.Formats)),
	)
}

// Format is a single format descriptor from the metadata document.
type Format struct {
	FormatID   string  `json:"format_id"`
	FormatNote string  `json:"format_note"`
	Ext        string  `json:"ext"`
	Resolution string  `json:"resolution"`
	FPS        float64 `json:"fps"`
	Height     int     `json:"height"`
	Vcodec     string  `json:"vcodec"`
	Acodec     string  `json:"acodec"`
}

// DownloadRequest describes one incoming download. Its lifetime is bounded
// by the HTTP request/response cycle that created it.
type DownloadRequest struct {
	URL      string
	Kind     Kind
	Height   int    // requested video height, KindVideo only
	ClientID string // push-channel session, empty when the browser opened none
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r DownloadRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", r.URL),
		slog.String("kind", string(r.Kind)),
		slog.Int("height", r.Height),
		slog.String("client_id", r.ClientID),
	)
}

// EventError is the event type pushed when a download fails.
const EventError = "error"

// ProgressEvent is one normalized status update pushed to the browser.
// Produced continuously during a download, consumed immediately, never stored.
type ProgressEvent struct {
	Type     string  `json:"type"`
	Progress float64 `json:"progress,omitempty"`
	Status   string  `json:"status,omitempty"`
	Size     string  `json:"size,omitempty"`
	Speed    string  `json:"speed,omitempty"`
	ETA      string  `json:"eta,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (e ProgressEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", e.Type),
		slog.Float64("progress", e.Progress),
		slog.String("status", e.Status),
		slog.String("message", e.Message),
	)
}
