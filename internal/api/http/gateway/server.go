package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/domain/update"
	"github.com/oshokin/update-gateway/internal/logger"
)

// Route patterns.
const (
	routeHealth        = "GET /healthz"
	routeDownload      = "GET /{product}/download/{tag}/{asset_id}/{filename}"
	routeCheck         = "GET /{product}/{channel}/{target}/{arch}/{current_version}"
	routeCheckStable   = "GET /{product}/{target}/{arch}/{current_version}"
	defaultContentType = "application/octet-stream"
)

// Checker answers update checks.
type Checker interface {
	CheckUpdate(ctx context.Context, q update.Query, baseURL string) (*update.Outcome, error)
}

// Downloader opens asset downloads.
type Downloader interface {
	Open(ctx context.Context, productID, tag, assetRef, filename string) (*update.AssetStream, error)
	Stat(ctx context.Context, productID, tag, assetRef, filename string) (update.Asset, error)
}

// Server is the HTTP handler of the gateway.
type Server struct {
	checker    Checker
	downloader Downloader
	// publicURL is the origin used in manifest URLs; empty means "derive from the request".
	publicURL string
	handler   http.Handler
}

// NewServer wires the services into an http.Handler.
func NewServer(checker Checker, downloader Downloader, publicURL string) *Server {
	s := &Server{
		checker:    checker,
		downloader: downloader,
		publicURL:  strings.TrimRight(publicURL, "/"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(routeHealth, s.handleHealth)
	mux.HandleFunc(routeDownload, s.handleDownload)
	mux.HandleFunc(routeCheck, s.handleCheck)
	mux.HandleFunc(routeCheckStable, s.handleCheck)

	s.handler = accessLog(mux)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

// handleCheck serves both check routes; the four-segment one has no channel and means stable.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channel, err := update.ParseChannel(r.PathValue("channel"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	q := update.Query{
		Product:        r.PathValue("product"),
		Channel:        channel,
		Target:         r.PathValue("target"),
		Arch:           r.PathValue("arch"),
		CurrentVersion: r.PathValue("current_version"),
	}

	outcome, err := s.checker.CheckUpdate(ctx, q, s.baseURL(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if !outcome.Available() {
		logger.DebugKV(ctx, "No update", "reason", outcome.Reason)
		w.WriteHeader(http.StatusNoContent)

		return
	}

	body, err := json.Marshal(outcome.Manifest)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleDownload relays an asset. Only Content-Type, Content-Length and
// Content-Disposition are sent; upstream headers are dropped.
// HEAD is answered from release metadata without opening the download.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		productID = r.PathValue("product")
		tag       = r.PathValue("tag")
		assetRef  = r.PathValue("asset_id")
		filename  = r.PathValue("filename")
	)

	if r.Method == http.MethodHead {
		asset, err := s.downloader.Stat(ctx, productID, tag, assetRef, filename)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		writeDownloadHeaders(w, asset.Name, asset.ContentType, asset.Size)
		w.WriteHeader(http.StatusOK)

		return
	}

	stream, err := s.downloader.Open(ctx, productID, tag, assetRef, filename)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	defer stream.Body.Close()

	writeDownloadHeaders(w, stream.Name, stream.ContentType, stream.Size)
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(newFlushWriter(w), stream.Body)
	if err != nil {
		logger.WarnKV(ctx, "Download interrupted",
			"asset", stream.Name,
			"transferred", humanize.IBytes(uint64(written)),
			"error", err)

		return
	}

	if stream.Size > 0 && written != stream.Size {
		logger.WarnKV(ctx, "Download size differs from upstream metadata",
			"asset", stream.Name,
			"expected", stream.Size,
			"written", written)

		return
	}

	logger.DebugKV(ctx, "Download complete",
		"asset", stream.Name,
		"transferred", humanize.IBytes(uint64(written)))
}

func writeDownloadHeaders(w http.ResponseWriter, name, mediaType string, size int64) {
	h := w.Header()
	h.Set("Content-Type", contentType(mediaType))
	h.Set("Content-Disposition", contentDisposition(name))

	if size > 0 {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
	}
}

// flushWriter sends every chunk to the client as soon as it is written,
// so a slow upstream still yields headers and partial data.
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

// newFlushWriter flushes the pending headers and wraps w.
// Writers that cannot flush are returned as is.
func newFlushWriter(w http.ResponseWriter) io.Writer {
	rc := http.NewResponseController(w)
	if err := rc.Flush(); errors.Is(err, http.ErrNotSupported) {
		return w
	}

	return &flushWriter{w: w, rc: rc}
}

// Write implements io.Writer.
func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}

	return n, f.rc.Flush()
}

// baseURL returns the origin manifest URLs point at.
func (s *Server) baseURL(r *http.Request) string {
	if s.publicURL != "" {
		return s.publicURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}

// writeError maps err to a status code and writes only the generic status text.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := StatusFor(err)

	switch {
	case code >= http.StatusInternalServerError:
		kind, _ := update.UpstreamKindOf(err)
		logger.ErrorKV(ctx, "Request failed", "status", code, "upstream_kind", kind, "error", err)
	default:
		logger.DebugKV(ctx, "Request rejected", "status", code, "error", err)
	}

	http.Error(w, http.StatusText(code), code)
}

// StatusFor maps a domain error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, product.ErrUnknownProduct), errors.Is(err, update.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, update.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, update.ErrUpstream):
		kind, _ := update.UpstreamKindOf(err)
		if kind == update.KindUnavailable {
			return http.StatusServiceUnavailable
		}

		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// contentType keeps a well-formed upstream media type and falls back to a binary one.
func contentType(upstream string) string {
	if upstream == "" {
		return defaultContentType
	}

	if _, _, err := mime.ParseMediaType(upstream); err != nil {
		return defaultContentType
	}

	return upstream
}

// contentDisposition marks the response as a file download named name.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}

	return "attachment"
}
