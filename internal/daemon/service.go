// Package daemon provides the long-running background billing service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/theirongolddev/subburn/internal/alert"
	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/logger"
	"github.com/theirongolddev/subburn/internal/pipeline"
	"github.com/theirongolddev/subburn/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr           string
	Interval       time.Duration
	EventsBuffer   int
	RepairSchedule string
	AlertSchedule  string
	HorizonMonths  int
	DueSoonDays    int
	CacheTTL       time.Duration
	CORSOrigins    []string
}

// Event types.
const (
	EventSnapshot   = "snapshot"
	EventSpendDelta = "spend_delta"
	EventAlertSent  = "alert_sent"
	EventRepair     = "repair"
)

// Event is emitted whenever a user's state changes.
type Event struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id,omitempty"`
	Snapshot  *Snapshot      `json:"snapshot,omitempty"`
	Delta     *Delta         `json:"delta,omitempty"`
	Alert     *alert.Payload `json:"alert,omitempty"`
	Repair    *RepairSummary `json:"repair,omitempty"`
}

// RepairSummary is the event payload of a repair run for one user.
type RepairSummary struct {
	Repaired int      `json:"repaired"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time         `json:"started_at"`
	LastPollAt      time.Time         `json:"last_poll_at"`
	PollIntervalSec int               `json:"poll_interval_sec"`
	PollCount       int64             `json:"poll_count"`
	Users           int               `json:"users"`
	RepairSchedule  string            `json:"repair_schedule"`
	AlertSchedule   string            `json:"alert_schedule"`
	LastRepairAt    time.Time         `json:"last_repair_at,omitempty"`
	LastAlertAt     time.Time         `json:"last_alert_at,omitempty"`
	LastError       string            `json:"last_error,omitempty"`
	UserErrors      map[string]string `json:"user_errors,omitempty"`
	CacheHits       int64             `json:"cache_hits"`
	CacheMisses     int64             `json:"cache_misses"`
	EventCount      int               `json:"event_count"`
	SubscriberCount int               `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg        Config
	store      store.Store
	gate       *alert.Gate
	dispatcher alert.Dispatcher
	cache      *pipeline.ProjectionCache
	log        zerolog.Logger
	now        func() time.Time

	mu           sync.RWMutex
	startedAt    time.Time
	lastPollAt   time.Time
	lastRepairAt time.Time
	lastAlertAt  time.Time
	pollCount    int64
	lastError    string
	userErrors   map[string]string
	snapshots    map[string]Snapshot
	nextEventID  int64
	events       []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service. now defaults to time.Now.
func New(cfg Config, st store.Store, d alert.Dispatcher, log zerolog.Logger, now func() time.Time) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.RepairSchedule == "" {
		cfg.RepairSchedule = "5 0 * * *"
	}
	if cfg.AlertSchedule == "" {
		cfg.AlertSchedule = "0 9 * * *"
	}
	if cfg.HorizonMonths <= 0 {
		cfg.HorizonMonths = pipeline.DefaultHorizonMonths
	}
	if cfg.DueSoonDays <= 0 {
		cfg.DueSoonDays = billing.DueSoonDays
	}
	if now == nil {
		now = time.Now
	}
	if d == nil {
		d = alert.LogDispatcher{Log: log}
	}

	log = logger.Component(log, "daemon")
	return &Service{
		cfg:        cfg,
		store:      st,
		gate:       alert.NewGate(st, log),
		dispatcher: d,
		cache:      pipeline.NewProjectionCache(cfg.CacheTTL, now),
		log:        log,
		now:        now,
		startedAt:  now(),
		userErrors: make(map[string]string),
		snapshots:  make(map[string]Snapshot),
		subs:       make(map[int]chan Event),
	}
}

// Handler returns the HTTP API with CORS applied.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/users/{id}/snapshot", s.handleUserSnapshot)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return s.logRequests(c.Handler(mux))
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("uri", r.URL.RequestURI()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

// Run starts HTTP endpoints, the cron jobs and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	sched := cron.New(cron.WithLocation(time.UTC))
	if _, err := sched.AddFunc(s.cfg.RepairSchedule, func() {
		s.RunRepair(ctx)
		s.PollOnce(ctx)
	}); err != nil {
		return fmt.Errorf("repair schedule %q: %w", s.cfg.RepairSchedule, err)
	}
	if _, err := sched.AddFunc(s.cfg.AlertSchedule, func() { s.RunAlerts(ctx) }); err != nil {
		return fmt.Errorf("alert schedule %q: %w", s.cfg.AlertSchedule, err)
	}

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

	// Repair first so the seeded snapshot projects yearly charges correctly.
	s.RunRepair(ctx)
	s.PollOnce(ctx)

	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.PollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// PollOnce refreshes every user's snapshot. A user whose refresh fails keeps
// the previous snapshot and gets an entry in Status.UserErrors.
func (s *Service) PollOnce(ctx context.Context) {
	now := s.now()
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.log.Error().Err(err).Msg("listing users failed")
		return
	}

	var events []Event
	for _, id := range ids {
		snap, err := s.buildSnapshot(ctx, id, now)

		s.mu.Lock()
		if err != nil {
			s.userErrors[id] = err.Error()
			s.mu.Unlock()
			s.log.Warn().Err(err).Str("user_id", id).Msg("snapshot refresh failed, keeping last good")
			continue
		}
		delete(s.userErrors, id)
		prev, prevExists := s.snapshots[id]
		s.snapshots[id] = snap

		switch {
		case !prevExists:
			events = append(events, s.newEventLocked(EventSnapshot, id, now, func(ev *Event) {
				ev.Snapshot = &snap
			}))
		default:
			if delta := diffSnapshots(prev, snap); !delta.isZero() {
				events = append(events, s.newEventLocked(EventSpendDelta, id, now, func(ev *Event) {
					ev.Snapshot = &snap
					ev.Delta = &delta
				}))
			}
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""
	s.mu.Unlock()

	for _, ev := range events {
		s.publishEvent(ev)
	}
}

// RunRepair rolls every user's stale billing dates forward.
func (s *Service) RunRepair(ctx context.Context) {
	now := s.now()
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		s.setError(err)
		s.log.Error().Err(err).Msg("repair: listing users failed")
		return
	}

	for _, id := range ids {
		subs, err := s.store.ListSubscriptions(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", id).Msg("repair: loading subscriptions failed")
			continue
		}
		report := pipeline.RepairStale(ctx, subs, now, s.store)
		if report.Repaired == 0 && report.Failed == 0 {
			continue
		}

		summary := RepairSummary{Repaired: report.Repaired, Failed: report.Failed}
		for _, o := range report.Outcomes {
			if o.Err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", o.SubscriptionID, o.Err))
			}
		}
		s.log.Info().Str("user_id", id).Int("repaired", report.Repaired).Int("failed", report.Failed).Msg("repair run")

		s.mu.Lock()
		ev := s.newEventLocked(EventRepair, id, now, func(ev *Event) { ev.Repair = &summary })
		s.mu.Unlock()
		s.publishEvent(ev)
	}

	s.mu.Lock()
	s.lastRepairAt = now
	s.mu.Unlock()
}

// RunAlerts checks every user's budget and dispatches at most one alert per
// user per day.
func (s *Service) RunAlerts(ctx context.Context) {
	now := s.now()
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		s.setError(err)
		s.log.Error().Err(err).Msg("alerts: listing users failed")
		return
	}

	for _, o := range s.gate.CheckAll(ctx, ids, now, s.dispatcher) {
		if !o.Decision.Dispatch {
			continue
		}
		payload := o.Decision.Payload
		s.mu.Lock()
		ev := s.newEventLocked(EventAlertSent, o.UserID, now, func(ev *Event) { ev.Alert = &payload })
		s.mu.Unlock()
		s.publishEvent(ev)
	}

	s.mu.Lock()
	s.lastAlertAt = now
	s.mu.Unlock()
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

// newEventLocked assigns the next event ID. s.mu must be held.
func (s *Service) newEventLocked(typ, userID string, at time.Time, fill func(*Event)) Event {
	s.nextEventID++
	ev := Event{ID: s.nextEventID, Type: typ, Timestamp: at, UserID: userID}
	if fill != nil {
		fill(&ev)
	}
	return ev
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

	var userErrors map[string]string
	if len(s.userErrors) > 0 {
		userErrors = make(map[string]string, len(s.userErrors))
		for k, v := range s.userErrors {
			userErrors[k] = v
		}
	}
	hits, misses, _ := s.cache.Stats()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Users:           len(s.snapshots),
		RepairSchedule:  s.cfg.RepairSchedule,
		AlertSchedule:   s.cfg.AlertSchedule,
		LastRepairAt:    s.lastRepairAt,
		LastAlertAt:     s.lastAlertAt,
		LastError:       s.lastError,
		UserErrors:      userErrors,
		CacheHits:       hits,
		CacheMisses:     misses,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

// UserSnapshot returns the last good snapshot for a user.
func (s *Service) UserSnapshot(userID string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[userID]
	return snap, ok
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleUserSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.UserSnapshot(r.PathValue("id"))
	if !ok {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")

	s.mu.RLock()
	events := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if user == "" || ev.UserID == user {
			events = append(events, ev)
		}
	}
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

	// Send current snapshots immediately.
	s.mu.RLock()
	users := make([]string, 0, len(s.snapshots))
	for u := range s.snapshots {
		users = append(users, u)
	}
	sort.Strings(users)
	initial := make([]Event, 0, len(users))
	for _, u := range users {
		snap := s.snapshots[u]
		initial = append(initial, Event{Type: EventSnapshot, Timestamp: snap.At, UserID: u, Snapshot: &snap})
	}
	s.mu.RUnlock()

	for _, ev := range initial {
		writeSSE(w, ev)
	}
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
