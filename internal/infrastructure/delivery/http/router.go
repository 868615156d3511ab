// Package httprouter exposes the browser-facing routes: the landing page,
// media info lookup, the three download endpoints, the progress push
// channel and operational endpoints.
package httprouter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"slices"

	"vidrelay/internal/config"
	"vidrelay/internal/consts"
	"vidrelay/internal/entity"
	"vidrelay/internal/errs"
	"vidrelay/internal/infrastructure/delivery/http/middleware"
	"vidrelay/internal/infrastructure/delivery/http/request"
	"vidrelay/internal/infrastructure/delivery/http/response"
	"vidrelay/internal/observability"
	"vidrelay/internal/orchestrator"
	"vidrelay/internal/session"
	"vidrelay/internal/workspace"
	"vidrelay/web"
)

type chain []func(http.Handler) http.Handler

func (c chain) then(h http.Handler) http.Handler {
	for _, mw := range slices.Backward(c) {
		h = mw(h)
	}

	return h
}

type Router struct {
	*http.ServeMux
	log         *slog.Logger
	cfg         *config.Config
	globalChain chain
	orc         *orchestrator.Orchestrator
	sessions    *session.Registry
	ws          *workspace.Workspace
	metrics     *observability.Metrics
}

func New(
	log *slog.Logger,
	cfg *config.Config,
	orc *orchestrator.Orchestrator,
	sessions *session.Registry,
	ws *workspace.Workspace,
	metrics *observability.Metrics,
) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log,
		cfg:      cfg,
		orc:      orc,
		sessions: sessions,
		ws:       ws,
		metrics:  metrics,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

func (ro *Router) Use(mw ...func(http.Handler) http.Handler) {
	ro.globalChain = append(ro.globalChain, mw...)
}

func (ro *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ro.globalChain.then(ro.ServeMux).ServeHTTP(w, req)
}

func (ro *Router) SetGlobalMiddlewares() {
	ro.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(ro.metrics),
	)
}

func (ro *Router) SetRoutes() {
	ro.HandleFunc("GET /{$}", ro.Home)
	ro.HandleFunc("GET /readyz", ro.Readyz)
	ro.HandleFunc("POST /info", ro.Info)
	ro.HandleFunc("GET /download", ro.DownloadVideo)
	ro.HandleFunc("GET /download-audio", ro.DownloadAudio)
	ro.HandleFunc("GET /download-subtitle", ro.DownloadSubtitle)
	ro.HandleFunc("GET /ws", ro.Connect)
	ro.Handle("GET /metrics", ro.metrics.Handler())
}

func (ro *Router) Home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(web.Index())
}

func (ro *Router) Readyz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (ro *Router) Info(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Info")

	ctx, cancel := context.WithTimeout(r.Context(), ro.cfg.HTTP.MetadataTimeout)
	defer cancel()

	in, err := request.DecodeInfo(r)
	if err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidURL, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidURL)

		return
	}

	info, err := ro.orc.Info(ctx, in.URL)
	if err != nil {
		log.ErrorContext(ctx, consts.RespInfoFetchFailed, slog.Any("error", err))
		response.BadRequest(w, consts.RespInfoFetchFailed)

		return
	}

	response.OK(w, info)
}

func (ro *Router) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	ro.serveDownload(w, r, entity.KindVideo)
}

func (ro *Router) DownloadAudio(w http.ResponseWriter, r *http.Request) {
	ro.serveDownload(w, r, entity.KindAudio)
}

func (ro *Router) DownloadSubtitle(w http.ResponseWriter, r *http.Request) {
	ro.serveDownload(w, r, entity.KindSubtitle)
}

// serveDownload runs the download lifecycle and streams the produced file.
// Workspace artifacts are removed once streaming ends, however it ends.
func (ro *Router) serveDownload(w http.ResponseWriter, r *http.Request, kind entity.Kind) {
	log := ro.log.With("handler", "Download", "kind", string(kind))

	ctx, cancel := context.WithTimeout(r.Context(), ro.cfg.HTTP.DownloadTimeout)
	defer cancel()

	req, err := request.ParseDownload(r, kind)
	if err != nil {
		log.ErrorContext(ctx, "invalid download request", slog.Any("error", err))
		response.BadRequest(w, inputErrMessage(err))

		return
	}

	res, err := ro.orc.Download(ctx, req)
	if err != nil {
		log.ErrorContext(ctx, "download failed", slog.Any("error", err))

		status, msg := downloadErrStatus(kind, err)
		response.Err(w, status, msg)

		return
	}
	defer ro.ws.Remove(res.Cleanup...)

	file, err := os.Open(res.Path)
	if err != nil {
		log.ErrorContext(ctx, "open produced file", slog.Any("error", err))
		response.InternalServerError(w, consts.RespFileNotProduced)

		return
	}
	defer file.Close()

	w.Header().Set("Content-Disposition", `attachment; filename="`+url.PathEscape(res.Filename)+`"`)
	w.Header().Set("Content-Type", res.ContentType)

	// A copy error here means the client went away mid-stream; the response
	// is already committed, so it is only logged.
	if _, err := io.Copy(w, file); err != nil {
		log.DebugContext(ctx, "stream aborted", slog.Any("error", err))
	}
}

// inputErrMessage maps validation errors to their response message.
func inputErrMessage(err error) string {
	if errors.Is(err, errs.ErrInvalidQuality) {
		return consts.RespInvalidQuality
	}

	return consts.RespInvalidURL
}

// downloadErrStatus maps orchestrator errors to a status and message.
// Extraction failures are the server's problem; everything else reflects
// the request or the source media.
func downloadErrStatus(kind entity.Kind, err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrNoSubtitles):
		return http.StatusBadRequest, consts.RespNoSubtitles
	case errors.Is(err, errs.ErrMetadataFetch):
		return http.StatusBadRequest, consts.RespInfoFetchFailed
	case errors.Is(err, errs.ErrOutputMissing):
		return http.StatusBadRequest, consts.RespFileNotProduced
	}

	switch kind {
	case entity.KindAudio:
		return http.StatusInternalServerError, consts.RespAudioDownloadFailed
	case entity.KindSubtitle:
		return http.StatusInternalServerError, consts.RespSubtitleDownloadFailed
	default:
		return http.StatusInternalServerError, consts.RespDownloadFailed
	}
}
