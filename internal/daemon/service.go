// Package daemon provides the long-running report service over a data directory.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/pipeline"
	"github.com/theirongolddev/timeq/internal/query"
	"github.com/theirongolddev/timeq/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	DataDir  string
	UseCache bool
	// CachePath overrides pipeline.CachePath() when UseCache is set.
	CachePath string

	// Query produces the snapshot totals carried by events.
	Query string
	Exec  pipeline.Config

	Interval     time.Duration
	Addr         string
	EventsBuffer int
}

// Snapshot is a compact report state for status/event payloads.
type Snapshot struct {
	At            time.Time `json:"at"`
	Version       string    `json:"version"`
	Files         int       `json:"files"`
	ParseErrors   int       `json:"parse_errors"`
	Entries       int       `json:"entries"`
	TotalHours    float64   `json:"total_hours"`
	TotalInvoiced float64   `json:"total_invoiced"`
	Utilization   float64   `json:"utilization"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Files    int     `json:"files"`
	Entries  int     `json:"entries"`
	Hours    float64 `json:"hours"`
	Invoiced float64 `json:"invoiced"`
}

// Event is emitted whenever the data snapshot version changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time          `json:"started_at"`
	LastPollAt      time.Time          `json:"last_poll_at"`
	PollIntervalSec int                `json:"poll_interval_sec"`
	PollCount       int64              `json:"poll_count"`
	DataDir         string             `json:"data_dir"`
	Query           string             `json:"query"`
	Summary         Snapshot           `json:"summary"`
	LastError       string             `json:"last_error,omitempty"`
	EventCount      int                `json:"event_count"`
	SubscriberCount int                `json:"subscriber_count"`
	Memo            pipeline.MemoStats `json:"memo"`
	Queries         query.CacheStats   `json:"queries"`
}

// QueryError is the /v1/query body for queries that fail to compile.
type QueryError struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	queries *query.Cache
	memo    *pipeline.Memo

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	entries     []model.TimeEntry
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 10 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8477"
	}
	if strings.TrimSpace(cfg.Query) == "" {
		cfg.Query = "PERIOD all-time"
	}

	queries := query.NewCache()
	return &Service{
		cfg:       cfg,
		queries:   queries,
		memo:      pipeline.NewMemo(queries),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/query", s.handleQuery)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.HandleFunc("/v1/ws", s.handleSocket)
	return mux
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("daemon listening", "addr", s.cfg.Addr, "data_dir", s.cfg.DataDir, "interval", s.cfg.Interval)

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// pollOnce reloads the data directory. Reports are recomputed only when
// the snapshot version moved.
func (s *Service) pollOnce() {
	res, err := s.load()
	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		slog.Warn("daemon poll failed", "data_dir", s.cfg.DataDir, "err", err)
		return
	}

	s.mu.RLock()
	unchanged := s.hasSnapshot && s.snapshot.Version == res.Version
	s.mu.RUnlock()
	if unchanged {
		s.mu.Lock()
		s.lastPollAt = now
		s.pollCount++
		s.lastError = ""
		s.mu.Unlock()
		return
	}

	s.memo.Invalidate()
	snap := Snapshot{
		At:          now,
		Version:     res.Version,
		Files:       res.TotalFiles,
		ParseErrors: res.ParseErrors,
		Entries:     len(res.Entries),
	}
	pd, qerr := s.memo.Run(s.cfg.Query, res.Version, res.Entries, s.cfg.Exec)
	if qerr != nil {
		slog.Warn("daemon snapshot query failed", "query", s.cfg.Query, "err", qerr)
	} else {
		snap.TotalHours = pd.Summary.TotalHours
		snap.TotalInvoiced = pd.Summary.TotalInvoiced
		snap.Utilization = pd.Summary.Utilization
	}
	slog.Debug("daemon snapshot changed", "version", res.Version, "files", res.TotalFiles, "entries", len(res.Entries))

	var ev Event

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.entries = res.Entries
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""
	if qerr != nil {
		s.lastError = qerr.Error()
	}

	s.nextEventID++
	ev = Event{
		ID:        s.nextEventID,
		Type:      "snapshot",
		Timestamp: now,
		Snapshot:  snap,
	}
	if prevExists {
		ev.Type = "data_changed"
		ev.Delta = diffSnapshots(prev, snap)
	}
	s.mu.Unlock()

	s.publishEvent(ev)
}

func (s *Service) load() (*pipeline.LoadResult, error) {
	if s.cfg.UseCache {
		path := s.cfg.CachePath
		if path == "" {
			path = pipeline.CachePath()
		}
		cache, err := store.Open(path)
		if err == nil {
			defer func() { _ = cache.Close() }()
			cr, loadErr := pipeline.LoadWithCache(s.cfg.DataDir, cache, nil)
			if loadErr == nil {
				return &cr.LoadResult, nil
			}
			slog.Warn("cached load failed, falling back", "err", loadErr)
		} else {
			slog.Warn("opening cache", "path", path, "err", err)
		}
	}
	return pipeline.Load(s.cfg.DataDir, nil)
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Files:    curr.Files - prev.Files,
		Entries:  curr.Entries - prev.Entries,
		Hours:    curr.TotalHours - prev.TotalHours,
		Invoiced: curr.TotalInvoiced - prev.TotalInvoiced,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		DataDir:         s.cfg.DataDir,
		Query:           s.cfg.Query,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
		Memo:            s.memo.Stats(),
		Queries:         s.queries.Stats(),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleQuery(w http.ResponseWriter, r *http.Request) {
	pd, err := s.runQuery(r.URL.Query().Get("q"))
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(queryError(err))
		return
	}
	_ = json.NewEncoder(w).Encode(pd)
}

// runQuery evaluates text against the current snapshot through the memo.
func (s *Service) runQuery(text string) (model.ProcessedData, error) {
	s.mu.RLock()
	version, entries := s.snapshot.Version, s.entries
	s.mu.RUnlock()
	return s.memo.Run(text, version, entries, s.cfg.Exec)
}

func queryError(err error) QueryError {
	qe := QueryError{Error: err.Error(), Kind: "error"}
	var pe *query.ParseError
	var se *query.SemanticError
	switch {
	case errors.As(err, &pe):
		qe.Kind, qe.Line, qe.Column = pe.Kind.String(), pe.Line, pe.Column
	case errors.As(err, &se):
		qe.Kind, qe.Line, qe.Column, qe.Token = "semantic error", se.Line, se.Column, se.Token
	}
	return qe
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
