// Package http serves the payminder JSON API: due and upcoming lists,
// summaries, payment listings and the write operations that record
// payments, reschedule rows and add notes.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"payminder/internal/cache"
	"payminder/internal/core"
	"payminder/internal/log"
	"payminder/internal/middleware/ratelimit"
	"payminder/internal/middleware/security"
	"payminder/internal/middleware/trace"
	"payminder/internal/services"
)

// Scanner is the read side. *services.Engine satisfies it.
type Scanner interface {
	Load(ctx context.Context, sources []core.Source) ([]core.PaymentRecord, services.ScanReport)
	FindDue(ctx context.Context, sources []core.Source, today core.Date) ([]core.ClassifiedPayment, services.ScanReport)
	FindUpcoming(ctx context.Context, sources []core.Source, today core.Date, horizonDays int) ([]core.ClassifiedPayment, services.ScanReport)
	Summarize(ctx context.Context, sources []core.Source, today core.Date) (core.PaymentSummary, services.ScanReport)
}

// Payments is the write side. *services.PaymentService satisfies it.
type Payments interface {
	RecordPayment(ctx context.Context, loc core.Locator, amount decimal.Decimal) (core.PaymentRecord, error)
	Reschedule(ctx context.Context, loc core.Locator, due core.Date, remark string) (core.PaymentRecord, error)
	AddNote(ctx context.Context, loc core.Locator, message string) error
}

// SourceLister lists the ledgers to scan. *backend.Backend satisfies it.
type SourceLister interface {
	SourcesFor(ctx context.Context, city string) ([]core.Source, error)
}

// NotificationLog lists recent deliveries. *storage.SQLiteRepository
// satisfies it.
type NotificationLog interface {
	ListRecent(ctx context.Context, limit int) ([]core.Notification, error)
}

// Dependencies wires the server. Notifications may be nil.
type Dependencies struct {
	Scanner       Scanner
	Payments      Payments
	Sources       SourceLister
	Notifications NotificationLog
	HorizonDays   int
	Logger        *log.Logger
}

var errUnknownLedger = errors.New("unknown ledger")

const requestTimeout = 30 * time.Second

type Server struct {
	http.Server
	deps     Dependencies
	logger   *log.Logger
	today    func() core.Date
	limiter  *ratelimit.Limiter
	detector *security.Detector

	replays *replays
	caches  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := log.OrDiscard(deps.Logger)
	s := &Server{
		deps:     deps,
		logger:   logger.WithComponent(log.ComponentHTTP),
		today:    core.Today,
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector: security.NewDetector(),
		replays:  newReplays(),
		caches:   cache.NewManager(logger),
	}
	s.caches.Register(s.replays.responses)
	s.caches.StartCleanup(5 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/due", s.read(s.handleDue))
	mux.HandleFunc("GET /api/upcoming", s.read(s.handleUpcoming))
	mux.HandleFunc("GET /api/summary", s.read(s.handleSummary))
	mux.HandleFunc("GET /api/payments", s.read(s.handlePayments))
	mux.HandleFunc("GET /api/cities", s.handleCities)
	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	mux.HandleFunc("POST /api/payments/pay", s.idempotent(s.handlePay))
	mux.HandleFunc("POST /api/payments/reschedule", s.idempotent(s.handleReschedule))
	mux.HandleFunc("POST /api/payments/note", s.idempotent(s.handleNote))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// chain wraps h with the middleware stack, outermost first.
func (s *Server) chain(h http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			"client_ip", s.detector.ExtractClientIP(r))
		body, _ := encodeJSON(errorJSON{Error: "rate limit exceeded", RequestID: trace.GetRequestID(r.Context())})
		writeBody(w, http.StatusTooManyRequests, body)
	}
	onSuspicious := func(r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected suspicious request",
			"client_ip", s.detector.ExtractClientIP(r))
	}

	h = s.limiter.Middleware(s.detector.ExtractClientIP, onLimit, http.MethodPost)(h)
	h = s.detector.Middleware(onSuspicious)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = log.AccessLog(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = trace.Middleware(h)
	h = log.Middleware(s.logger)(h)
	return h
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// read runs a ledger read under the request timeout. Every call rescans
// the sources; nothing from a previous request is reused.
func (s *Server) read(h func(*http.Request) ([]byte, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		body, err := h(r.WithContext(ctx))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeBody(w, http.StatusOK, body)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Sources.SourcesFor(r.Context(), ""); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "ledgers unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
