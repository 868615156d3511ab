// Package orchestrator drives one download request end to end: fetch
// metadata, compute the output filename, run the extraction while relaying
// progress, locate the produced file and hand it to the HTTP layer for
// streaming and cleanup.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"vidrelay/internal/config"
	"vidrelay/internal/consts"
	"vidrelay/internal/entity"
	"vidrelay/internal/errs"
	"vidrelay/internal/observability"
	"vidrelay/internal/progress"
	"vidrelay/internal/runner"
	"vidrelay/internal/session"
	"vidrelay/internal/workspace"
	"vidrelay/pkg/fsname"
)

// metadataArgs are the flags for a metadata-only tool invocation.
var metadataArgs = []string{
	"--dump-single-json",
	"--no-warnings",
	"--no-call-home",
	"--prefer-free-formats",
	"--youtube-skip-dash-manifest",
}

// subtitleSuffixes is the ordered probe list for subtitle output files. The
// tool appends a language-region suffix of its own choosing, so every
// plausible English variant is tried in order. Other language families are
// not probed; their files are simply never found.
var subtitleSuffixes = []string{
	".srt",
	".en.srt",
	".en-US.srt",
	".en-GB.srt",
	".en_US.srt",
	".en_GB.srt",
}

// noCodec is the tool's marker for an absent audio or video codec.
const noCodec = "none"

// Orchestrator coordinates the runner, the progress parser, the session
// registry and the temp workspace for each request.
type Orchestrator struct {
	log      *slog.Logger
	cfg      *config.Config
	runner   *runner.Runner
	sessions *session.Registry
	ws       *workspace.Workspace
	metrics  *observability.Metrics
}

// New creates an Orchestrator.
func New(
	log *slog.Logger,
	cfg *config.Config,
	run *runner.Runner,
	sessions *session.Registry,
	ws *workspace.Workspace,
	metrics *observability.Metrics,
) *Orchestrator {
	return &Orchestrator{
		log:      log.With(slog.String("package", "orchestrator")),
		cfg:      cfg,
		runner:   run,
		sessions: sessions,
		ws:       ws,
		metrics:  metrics,
	}
}

// Info is the media summary returned to the browser.
type Info struct {
	Title     string       `json:"title"`
	Thumbnail string       `json:"thumbnail"`
	Duration  float64      `json:"duration"`
	Formats   []FormatInfo `json:"formats"`
}

// FormatInfo is one selectable format in the summary.
type FormatInfo struct {
	FormatID   string  `json:"formatId"`
	Quality    string  `json:"quality"`
	Container  string  `json:"container"`
	Resolution string  `json:"resolution"`
	FPS        float64 `json:"fps"`
	Vcodec     string  `json:"vcodec"`
	Acodec     string  `json:"acodec"`
}

// Result describes a produced output file ready to stream. Cleanup lists
// every artifact the request may have left in the workspace; the caller
// must remove them all once streaming ends, however it ends.
type Result struct {
	Path        string
	Filename    string
	ContentType string
	Cleanup     []string
}

// Info fetches metadata for the URL and reduces the format list to the
// entries the browser can actually pick: mp4 containers that carry at least
// one codec.
func (o *Orchestrator) Info(ctx context.Context, rawURL string) (*Info, error) {
	meta, err := o.fetchMetadata(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Title:     meta.Title,
		Thumbnail: meta.Thumbnail,
		Duration:  meta.Duration,
		Formats:   make([]FormatInfo, 0, len(meta.Formats)),
	}

	for _, f := range meta.Formats {
		if f.Ext != "mp4" || (f.Acodec == noCodec && f.Vcodec == noCodec) {
			continue
		}

		quality := f.FormatNote
		if f.Height > 0 {
			quality = fmt.Sprintf("%dp", f.Height)
		}

		info.Formats = append(info.Formats, FormatInfo{
			FormatID:   f.FormatID,
			Quality:    quality,
			Container:  f.Ext,
			Resolution: f.Resolution,
			FPS:        f.FPS,
			Vcodec:     f.Vcodec,
			Acodec:     f.Acodec,
		})
	}

	return info, nil
}

// Download runs the full lifecycle for one request. On success the returned
// Result points at the produced file; on failure an error event has already
// been pushed to the request's session, every artifact is removed and the
// returned error wraps the matching sentinel.
func (o *Orchestrator) Download(ctx context.Context, req entity.DownloadRequest) (*Result, error) {
	log := o.log.With("request", req)

	done := o.metrics.DownloadTimer(string(req.Kind))
	defer done()

	meta, err := o.fetchMetadata(ctx, req.URL)
	if err != nil {
		o.fail(req, consts.RespInfoFetchFailed, "metadata")

		return nil, err
	}

	filename := fsname.Build(meta.UploadDate, meta.Title, req.Kind.Ext())
	output := o.ws.Join(filename)
	base := o.ws.Join(fsname.Base(meta.UploadDate, meta.Title))
	args, cleanup := o.buildExtraction(req, output, base)

	log.Info("extraction starting",
		slog.String("output", output), slog.String("title", meta.Title))

	err = o.runner.RunStream(ctx, args, func(line string) {
		o.forward(req, line)
	})
	if err != nil {
		o.fail(req, failMessage(req.Kind), "extraction")
		o.ws.Remove(cleanup...)

		return nil, fmt.Errorf("%w: %w", errs.ErrExtraction, err)
	}

	serve, err := o.locateOutput(req.Kind, output, base)
	if err != nil {
		reason := "missing_output"
		msg := consts.RespFileNotProduced

		if req.Kind == entity.KindSubtitle {
			reason = "no_subtitles"
			msg = consts.RespNoSubtitles
		}

		o.fail(req, msg, reason)
		o.ws.Remove(cleanup...)

		return nil, err
	}

	// The tool's own completion marker may never have fired (no merge step
	// for single-stream downloads); once the file is confirmed on disk,
	// completion is decided here.
	o.sessions.Send(req.ClientID, entity.ProgressEvent{
		Type:     string(req.Kind),
		Progress: 100,
		Status:   consts.StatusDone,
	})

	o.metrics.RecordDownloadCompleted(string(req.Kind))

	log.Info("extraction finished", slog.String("file", serve))

	return &Result{
		Path:        serve,
		Filename:    filename,
		ContentType: req.Kind.ContentType(),
		Cleanup:     cleanup,
	}, nil
}

// fetchMetadata invokes the tool in capture-json mode.
func (o *Orchestrator) fetchMetadata(ctx context.Context, rawURL string) (*entity.MediaInfo, error) {
	args := append([]string{rawURL}, metadataArgs...)

	var meta entity.MediaInfo
	if err := o.runner.RunJSON(ctx, args, &meta); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrMetadataFetch, err)
	}

	o.log.DebugContext(ctx, "metadata fetched", "media", meta)

	return &meta, nil
}

// buildExtraction returns the kind-specific argument list and the full set
// of artifacts the invocation may produce.
func (o *Orchestrator) buildExtraction(req entity.DownloadRequest, output, base string) (args, cleanup []string) {
	switch req.Kind {
	case entity.KindAudio:
		args = []string{
			req.URL,
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "0",
			"-o", output,
			"--newline",
		}
		cleanup = []string{output, output + ".part"}
	case entity.KindSubtitle:
		// The tool appends its own language suffix, so it gets the base
		// path without extension.
		args = []string{
			req.URL,
			"--skip-download",
			"--write-auto-sub",
			"--write-sub",
			"--sub-lang", o.cfg.Dir.SubLangs,
			"--convert-subs", "srt",
			"-o", base,
		}

		for _, suffix := range subtitleSuffixes {
			cleanup = append(cleanup, base+suffix)
		}
	default:
		args = []string{
			req.URL,
			"-f", fmt.Sprintf("bestvideo[height=%d]+bestaudio/best[height<=%d]", req.Height, req.Height),
			"-o", output,
			"--merge-output-format", "mp4",
			"--newline",
		}
		cleanup = []string{output, output + ".part"}
	}

	return args, cleanup
}

// locateOutput verifies the produced file exists and returns the path to
// serve. Subtitles probe the ordered suffix list and serve the first hit.
func (o *Orchestrator) locateOutput(kind entity.Kind, output, base string) (string, error) {
	if kind != entity.KindSubtitle {
		if _, err := os.Stat(output); err != nil {
			return "", fmt.Errorf("%w: %s", errs.ErrOutputMissing, output)
		}

		return output, nil
	}

	for _, suffix := range subtitleSuffixes {
		candidate := base + suffix
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: probed %d candidates for %s", errs.ErrNoSubtitles, len(subtitleSuffixes), base)
}

// forward parses one raw output line and pushes any resulting events to the
// request's session.
func (o *Orchestrator) forward(req entity.DownloadRequest, line string) {
	for _, ev := range progress.ParseChunk(line) {
		o.sessions.Send(req.ClientID, entity.ProgressEvent{
			Type:     string(req.Kind),
			Progress: ev.Percent,
			Status:   statusLabel(ev.Phase),
			Size:     ev.Size,
			Speed:    ev.Speed,
			ETA:      ev.ETA,
		})
	}
}

// fail pushes an error event to the request's session and records the
// failure. Internal error details stay in the server log.
func (o *Orchestrator) fail(req entity.DownloadRequest, message, reason string) {
	o.metrics.RecordDownloadFailed(string(req.Kind), reason)

	o.sessions.Send(req.ClientID, entity.ProgressEvent{
		Type:    entity.EventError,
		Message: message,
	})
}

// statusLabel maps parser phases to the labels pushed on the wire.
func statusLabel(phase string) string {
	switch phase {
	case progress.PhaseMerging:
		return consts.StatusMerging
	case progress.PhaseConverting:
		return consts.StatusConverting
	case progress.PhaseComplete:
		return consts.StatusDone
	default:
		return consts.StatusDownloading
	}
}

// failMessage returns the user-facing message for a failed extraction.
func failMessage(kind entity.Kind) string {
	switch kind {
	case entity.KindAudio:
		return consts.RespAudioDownloadFailed
	case entity.KindSubtitle:
		return consts.RespSubtitleDownloadFailed
	default:
		return consts.RespDownloadFailed
	}
}
