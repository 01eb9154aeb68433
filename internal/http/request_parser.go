package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"payminder/internal/core"
	"payminder/internal/services"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// QueryParams are the read-side query parameters shared by the list
// endpoints. Today defaults to the server's date; "date" overrides it for
// as-of queries.
type QueryParams struct {
	City        string
	Today       core.Date
	HorizonDays int
	Filter      services.Filter
}

// ParseQuery reads city, date, days, search and status.
func ParseQuery(q url.Values, today core.Date, defaultHorizon int) (QueryParams, error) {
	p := QueryParams{
		City:        sanitizeInput(q.Get("city")),
		Today:       today,
		HorizonDays: defaultHorizon,
	}

	if v := strings.TrimSpace(q.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return p, fmt.Errorf("%w: date %q must be YYYY-MM-DD", errBadRequest, v)
		}
		p.Today = d
	}
	if v := strings.TrimSpace(q.Get("days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("%w: days %q must be a non-negative integer", errBadRequest, v)
		}
		p.HorizonDays = n
	}

	status := strings.ToLower(strings.TrimSpace(q.Get("status")))
	switch status {
	case services.FilterAll, services.FilterPaid, services.FilterUnpaid:
	default:
		return p, fmt.Errorf("%w: status %q must be paid or unpaid", errBadRequest, status)
	}
	p.Filter = services.Filter{
		Search: sanitizeInput(q.Get("search")),
		City:   p.City,
		Status: status,
	}
	return p, nil
}

// RowRef identifies the row a write targets. Key is preferred; Position is
// the fallback for rows read before keys were known.
type RowRef struct {
	Ledger   string      `json:"ledger"`
	Key      core.RowKey `json:"key,omitempty"`
	Position *int        `json:"position,omitempty"`
}

// Locator validates the reference and converts it.
func (ref RowRef) Locator() (core.Locator, error) {
	ledger := strings.TrimSpace(ref.Ledger)
	if ledger == "" {
		return core.Locator{}, fmt.Errorf("%w: ledger is required", errBadRequest)
	}
	loc := core.Locator{Ledger: ledger, Key: core.RowKey(strings.TrimSpace(string(ref.Key))), Position: -1}
	if ref.Position != nil {
		if *ref.Position < 0 {
			return core.Locator{}, fmt.Errorf("%w: position must not be negative", errBadRequest)
		}
		loc.Position = *ref.Position
	}
	if loc.Key == "" && loc.Position < 0 {
		return core.Locator{}, fmt.Errorf("%w: key or position is required", errBadRequest)
	}
	return loc, nil
}

type PayRequest struct {
	RowRef
	Amount string `json:"amount"`
}

type RescheduleRequest struct {
	RowRef
	DueDate string `json:"due_date"`
	Remark  string `json:"remark,omitempty"`
}

type NoteRequest struct {
	RowRef
	Message string `json:"message"`
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("%w: content type must be application/json", errBadRequest)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func parseLimit(q url.Values, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(q.Get("limit")))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
