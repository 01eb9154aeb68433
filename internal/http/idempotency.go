package http

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"payminder/internal/cache"
)

// IdempotencyHeader lets a client retry a write without applying it twice:
// a repeated key replays the first successful response.
const IdempotencyHeader = "Idempotency-Key"

const (
	idempotencyCacheSize = 1024
	idempotencyTTL       = 10 * time.Minute
	maxIdempotencyKeyLen = 128
)

var (
	errKeyInFlight = errors.New("a request with this idempotency key is still running")
	errKeyReused   = errors.New("idempotency key was used with a different request")
)

type storedResponse struct {
	digest      [sha256.Size]byte
	status      int
	contentType string
	body        []byte
}

// replays remembers successful write responses by idempotency key.
type replays struct {
	responses *cache.LRUCache[storedResponse]

	mu       sync.Mutex
	inFlight map[string]bool
}

func newReplays() *replays {
	return &replays{
		responses: cache.NewLRUCache[storedResponse](idempotencyCacheSize, idempotencyTTL),
		inFlight:  make(map[string]bool),
	}
}

func (p *replays) begin(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight[key] {
		return false
	}
	p.inFlight[key] = true
	return true
}

func (p *replays) end(key string) {
	p.mu.Lock()
	delete(p.inFlight, key)
	p.mu.Unlock()
}

// idempotent wraps a write handler. Requests without the header pass
// straight through. Only 2xx responses are remembered, so a failed write
// can be retried with the same key.
func (s *Server) idempotent(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if key == "" {
			h(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			writeError(w, r, fmt.Errorf("%w: %s longer than %d characters", errBadRequest, IdempotencyHeader, maxIdempotencyKeyLen))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: read body: %v", errBadRequest, err))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		digest := sha256.Sum256(body)
		slot := r.URL.Path + "|" + key

		if prev, ok := s.replays.responses.Get(slot); ok {
			if prev.digest != digest {
				writeError(w, r, errKeyReused)
				return
			}
			if prev.contentType != "" {
				w.Header().Set("Content-Type", prev.contentType)
			}
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(prev.status)
			_, _ = w.Write(prev.body)
			return
		}

		if !s.replays.begin(slot) {
			writeError(w, r, errKeyInFlight)
			return
		}
		defer s.replays.end(slot)

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		if rec.status >= 200 && rec.status < 300 {
			s.replays.responses.Set(slot, storedResponse{
				digest:      digest,
				status:      rec.status,
				contentType: rec.Header().Get("Content-Type"),
				body:        rec.body.Bytes(),
			})
		}
	}
}

// recordingWriter copies the status and body it passes through.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
