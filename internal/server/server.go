// Package server publishes the generated calendar over HTTP so calendar
// clients can subscribe to a spreadsheet.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-sheetcal/internal/config"
)

// cacheItem stores the rendered calendar and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// BuildFunc produces a fresh calendar document.
type BuildFunc func(ctx context.Context) ([]byte, error)

// CalendarServer serves the latest calendar on every path.
type CalendarServer struct {
	// cache uses atomic.Pointer for lock-free reads: clients poll often,
	// refreshes are rare.
	cache atomic.Pointer[cacheItem]
	Port  string
	// FileName is suggested to clients in Content-Disposition.
	FileName string
}

// NewCalendarServer creates a new instance of the server.
func NewCalendarServer(port, fileName string) *CalendarServer {
	return &CalendarServer{
		Port:     port,
		FileName: fileName,
	}
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *CalendarServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.handleCalendarRequest)

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      mux,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Update atomically replaces the served content.
func (s *CalendarServer) Update(data []byte) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	// Unchanged content keeps its validators so clients keep their cache.
	if old := s.cache.Load(); old != nil && old.etag == etag {
		return
	}

	s.cache.Store(&cacheItem{
		data:         data,
		etag:         etag,
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	})

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

// Refresh rebuilds the calendar and publishes it. On failure the previous
// calendar stays online.
func (s *CalendarServer) Refresh(ctx context.Context, build BuildFunc) error {
	data, err := build(ctx)
	if err != nil {
		slog.Error(config.MsgRefreshFailed,
			config.LogKeyComponent, config.CompWorker,
			config.LogKeyError, err,
		)
		return err
	}
	s.Update(data)
	return nil
}

// RunWorker refreshes now, then every interval until ctx is done. A
// non-positive interval refreshes only once.
func (s *CalendarServer) RunWorker(ctx context.Context, interval time.Duration, build BuildFunc) {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	_ = s.Refresh(ctx, build)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info(config.MsgWorkerStart, config.LogKeyInterval, interval)

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return
		case <-ticker.C:
			_ = s.Refresh(ctx, build)
		}
	}
}

// handleCalendarRequest answers calendar clients. GET and HEAD only; 503
// until the first successful build.
func (s *CalendarServer) handleCalendarRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	item := s.cache.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	item.writeHeaders(w.Header(), s.FileName)
	if item.notModified(r) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

func (c *cacheItem) writeHeaders(h http.Header, fileName string) {
	h.Set(config.HeaderContentType, config.MimeTextCalendar)
	h.Set(config.HeaderXContentType, config.MimeNoSniff)
	h.Set(config.HeaderCacheControl, config.CacheControlPrivate)
	h.Set(config.HeaderETag, c.etag)
	h.Set(config.HeaderLastModified, c.lastModified)
	if fileName != "" {
		h.Set(config.HeaderContentDisposition, fmt.Sprintf(config.FormatDisposition, fileName))
	}
}

// notModified checks the client's validators. If-None-Match wins over
// If-Modified-Since.
func (c *cacheItem) notModified(r *http.Request) bool {
	if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
		return match == c.etag
	}
	since, err := http.ParseTime(r.Header.Get(config.HeaderIfModifiedSince))
	if err != nil {
		return false
	}
	modified, err := http.ParseTime(c.lastModified)
	if err != nil {
		return false
	}
	return !modified.After(since)
}
