package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/FairForge/binsync/internal/binsyncerr"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	packsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binsync_packs_fetched_total",
			Help: "Total number of packs fetched by the remote chunk provider.",
		},
		[]string{"outcome"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "binsync_fetch_duration_seconds",
			Help:    "Pack download latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	cacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "binsync_cache_bytes",
			Help: "Bytes currently held in the pack downloader's cache.",
		},
	)
)

type msgKind int

const (
	msgPreload msgKind = iota
	msgDownload
)

type downloadMsg struct {
	kind       msgKind
	packID     uint64
	packLength uint64
}

// packDownloader fetches pack data on a background goroutine (spec
// §4.5.3). It maintains a bounded in-memory cache of downloaded packs and
// a priority queue that lets an urgent Download preempt queued Preloads
// (spec §4.8's "drain control messages before the next network request").
type packDownloader struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	cacheLimit uint64

	mu         sync.Mutex
	cond       *sync.Cond
	queue      []downloadMsg
	queuedIDs  map[uint64]struct{}
	queuedSize uint64
	packs      map[uint64][]byte
	cacheSize  uint64
	fetchErr   error
	terminated bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newPackDownloader(baseURL string, cacheLimit uint64, client *http.Client, rps float64, logger *zap.Logger) *packDownloader {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if rps <= 0 {
		rps = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &packDownloader{
		baseURL:    baseURL,
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
		cacheLimit: cacheLimit,
		queuedIDs:  make(map[uint64]struct{}),
		packs:      make(map[uint64][]byte),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)

	go d.run()
	return d
}

// Preload enqueues a background fetch for a pack the plan is expected to
// need, but drops the request if the cache is already at (or would
// exceed) its bound — Preload is an optimization, not a guarantee (spec
// §4.5.3).
func (d *packDownloader) Preload(packID, packLength uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.packs[packID]; ok {
		return
	}
	if _, ok := d.queuedIDs[packID]; ok {
		return
	}
	if d.cacheSize+d.queuedSize+packLength >= d.cacheLimit {
		d.logger.Debug("dropping preload, cache bound reached",
			zap.Uint64("pack_id", packID))
		return
	}

	d.queuedIDs[packID] = struct{}{}
	d.queuedSize += packLength
	d.queue = append(d.queue, downloadMsg{kind: msgPreload, packID: packID, packLength: packLength})
	d.cond.Signal()
}

// Download enqueues a fetch that must be served regardless of cache
// pressure — it preempts any queued Preloads for the same worker
// iteration (spec §4.5.3, §4.8).
func (d *packDownloader) Download(packID, packLength uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.packs[packID]; ok {
		return
	}
	if _, ok := d.queuedIDs[packID]; ok {
		// Already queued (as a Preload); bump it to the front by also
		// enqueuing a Download marker so the priority pop finds it.
		d.queue = append(d.queue, downloadMsg{kind: msgDownload, packID: packID, packLength: packLength})
		d.cond.Signal()
		return
	}

	d.queuedIDs[packID] = struct{}{}
	d.queue = append(d.queue, downloadMsg{kind: msgDownload, packID: packID, packLength: packLength})
	d.cond.Signal()
}

// run is the background worker loop: wait for work, drain all currently
// queued control messages to find the highest-priority one (Download over
// Preload), then perform exactly one network request before looping.
func (d *packDownloader) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.terminated {
			d.cond.Wait()
		}
		if d.terminated {
			d.mu.Unlock()
			return
		}

		msg, rest := popHighestPriority(d.queue)
		d.queue = rest
		d.mu.Unlock()

		d.fetchOne(msg)
	}
}

func popHighestPriority(queue []downloadMsg) (downloadMsg, []downloadMsg) {
	idx := 0
	for i, m := range queue {
		if m.kind == msgDownload {
			idx = i
			break
		}
	}
	msg := queue[idx]
	rest := append(append([]downloadMsg{}, queue[:idx]...), queue[idx+1:]...)
	return msg, rest
}

func (d *packDownloader) fetchOne(msg downloadMsg) {
	if err := d.limiter.Wait(d.ctx); err != nil {
		return
	}

	requestID := uuid.NewString()
	url := fmt.Sprintf("%s%d.binpack", d.baseURL, msg.packID)

	start := time.Now()
	data, err := d.fetch(url, requestID)
	fetchDuration.Observe(time.Since(start).Seconds())

	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.queuedIDs, msg.packID)
	if msg.kind == msgPreload {
		d.queuedSize -= msg.packLength
	}

	if err != nil {
		packsFetchedTotal.WithLabelValues("error").Inc()
		d.logger.Error("pack fetch failed",
			zap.String("url", url), zap.String("request_id", requestID), zap.Error(err))
		// Known simplification (spec §4.5.3, §4.8): a single failed
		// fetch aborts the worker rather than retrying with backoff.
		d.fetchErr = err
		d.terminated = true
		d.cond.Broadcast()
		return
	}

	packsFetchedTotal.WithLabelValues("ok").Inc()
	d.packs[msg.packID] = data
	d.cacheSize += uint64(len(data))
	cacheBytes.Set(float64(d.cacheSize))
	d.cond.Broadcast()
}

func (d *packDownloader) fetch(url, requestID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(d.ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-Id", requestID)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pack fetch: unexpected status %d for %s", resp.StatusCode, url)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}

	return io.ReadAll(body)
}

// GetPackBlocking returns the bytes of packID, blocking until the
// background worker has fetched it (or failed).
func (d *packDownloader) GetPackBlocking(packID uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		if data, ok := d.packs[packID]; ok {
			return data, nil
		}
		if d.terminated {
			if d.fetchErr != nil {
				return nil, d.fetchErr
			}
			return nil, binsyncerr.Unspecified
		}
		d.cond.Wait()
	}
}

// Close sends the terminate signal and waits for the background worker to
// exit (spec §4.5.3 cancellation, §5).
func (d *packDownloader) Close() {
	d.mu.Lock()
	d.terminated = true
	d.mu.Unlock()
	d.cancel()
	d.cond.Broadcast()
	<-d.done
}
