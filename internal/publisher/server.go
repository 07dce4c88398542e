// Package publisher serves a RemoteManifest and its packs over HTTP (spec
// §6): GET /manifest.binsync returns the encoded RemoteManifest, and GET
// /{id}.binpack returns one pack's assembled bytes, matching the wire
// format the Remote chunk provider expects.
package publisher

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FairForge/binsync/internal/pack"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binsync_publisher_requests_total",
			Help: "Total number of requests served by the pack publisher.",
		},
		[]string{"route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "binsync_publisher_request_duration_seconds",
			Help:    "Publisher request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// PackSource assembles a pack's raw bytes on demand, in chunk order. A
// Server is backed by a PackSource rather than a pre-materialized byte
// slice per pack, so a publisher can serve directly from the manifest's
// source tree without a separate packing step writing files to disk.
type PackSource interface {
	AssemblePack(p pack.Pack) ([]byte, error)
}

// Server exposes a RemoteManifest's manifest and packs over HTTP.
type Server struct {
	rm     *pack.RemoteManifest
	source PackSource
	logger *zap.Logger

	packsByID map[uint64]*pack.Pack
	router    chi.Router
}

// NewServer builds a publisher Server for rm, assembling pack bytes
// through source.
func NewServer(rm *pack.RemoteManifest, source PackSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	packsByID := make(map[uint64]*pack.Pack, len(rm.Packs))
	for i := range rm.Packs {
		packsByID[rm.Packs[i].Hash] = &rm.Packs[i]
	}

	s := &Server{rm: rm, source: source, logger: logger, packsByID: packsByID}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(instrument)
	r.Get("/manifest.binsync", s.handleManifest)
	r.Get("/{id}.binpack", s.handlePack)
	s.router = r

	return s
}

// ServeHTTP lets Server be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	if err := pack.EncodeRemote(w, s.rm); err != nil {
		s.logger.Error("failed to encode remote manifest", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handlePack(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(chi.URLParam(r, "id"), ".binpack")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "malformed pack id", http.StatusBadRequest)
		return
	}

	p, ok := s.packsByID[id]
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := s.source.AssemblePack(*p)
	if err != nil {
		s.logger.Error("failed to assemble pack", zap.Uint64("pack_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		requestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
