package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"payminder/internal/core"
	"payminder/internal/log"
	"payminder/internal/services"
)

type listResponse[T any] struct {
	Today  core.Date  `json:"today"`
	Count  int        `json:"count"`
	Items  []T        `json:"items"`
	Report reportJSON `json:"report"`
}

type summaryResponse struct {
	Today  core.Date         `json:"today"`
	Total  summaryJSON       `json:"total"`
	Cities []citySummaryJSON `json:"cities"`
	Report reportJSON        `json:"report"`
}

type writeResponse struct {
	Payment paymentJSON `json:"payment"`
}

func (s *Server) params(r *http.Request) (QueryParams, []core.Source, error) {
	p, err := ParseQuery(r.URL.Query(), s.today(), s.deps.HorizonDays)
	if err != nil {
		return p, nil, err
	}
	sources, err := s.deps.Sources.SourcesFor(r.Context(), p.City)
	if err != nil {
		return p, nil, fmt.Errorf("list ledgers: %w", err)
	}
	return p, sources, nil
}

func (s *Server) handleDue(r *http.Request) ([]byte, error) {
	p, sources, err := s.params(r)
	if err != nil {
		return nil, err
	}
	due, report := s.deps.Scanner.FindDue(r.Context(), sources, p.Today)
	return encodeJSON(listResponse[classifiedJSON]{
		Today: p.Today, Count: len(due), Items: toClassified(due), Report: toReport(report),
	})
}

func (s *Server) handleUpcoming(r *http.Request) ([]byte, error) {
	p, sources, err := s.params(r)
	if err != nil {
		return nil, err
	}
	upcoming, report := s.deps.Scanner.FindUpcoming(r.Context(), sources, p.Today, p.HorizonDays)
	return encodeJSON(listResponse[classifiedJSON]{
		Today: p.Today, Count: len(upcoming), Items: toClassified(upcoming), Report: toReport(report),
	})
}

// handleSummary returns the overall summary plus one per city. The total is
// the sum of the city summaries.
func (s *Server) handleSummary(r *http.Request) ([]byte, error) {
	p, sources, err := s.params(r)
	if err != nil {
		return nil, err
	}

	byCity := make(map[string][]core.Source)
	var cities []string
	for _, src := range sources {
		if _, ok := byCity[src.City]; !ok {
			cities = append(cities, src.City)
		}
		byCity[src.City] = append(byCity[src.City], src)
	}
	sort.Strings(cities)

	resp := summaryResponse{Today: p.Today, Cities: make([]citySummaryJSON, 0, len(cities))}
	total := services.Summarize(nil, p.Today)
	var report services.ScanReport
	for _, city := range cities {
		sum, rep := s.deps.Scanner.Summarize(r.Context(), byCity[city], p.Today)
		total = total.Add(sum)
		report = mergeReports(report, rep)
		resp.Cities = append(resp.Cities, citySummaryJSON{City: city, summaryJSON: toSummary(sum)})
	}
	resp.Total = toSummary(total)
	resp.Report = toReport(report)

	return encodeJSON(resp)
}

func (s *Server) handlePayments(r *http.Request) ([]byte, error) {
	p, sources, err := s.params(r)
	if err != nil {
		return nil, err
	}
	records, report := s.deps.Scanner.Load(r.Context(), sources)
	records = p.Filter.Apply(records)
	return encodeJSON(listResponse[paymentJSON]{
		Today: p.Today, Count: len(records), Items: toPayments(records), Report: toReport(report),
	})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	sources, err := s.deps.Sources.SourcesFor(r.Context(), "")
	if err != nil {
		writeError(w, r, fmt.Errorf("list ledgers: %w", err))
		return
	}
	seen := make(map[string]bool)
	cities := []string{}
	for _, src := range sources {
		if !seen[src.City] {
			seen[src.City] = true
			cities = append(cities, src.City)
		}
	}
	sort.Strings(cities)
	writeJSON(w, r, http.StatusOK, map[string][]string{"cities": cities})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.deps.Notifications == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{"items": []notificationJSON{}})
		return
	}
	items, err := s.deps.Notifications.ListRecent(r.Context(), parseLimit(r.URL.Query(), 50, 500))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"items": toNotifications(items)})
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	loc, city, err := s.resolve(r.Context(), req.RowRef)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := core.ParsePositiveAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.deps.Payments.RecordPayment(r.Context(), loc, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec.City = city
	log.FromContext(r.Context()).InfoContext(r.Context(), "Payment recorded via API",
		log.FieldLedger, loc.Ledger, log.FieldCity, city, "amount", core.FormatAmount(amount))
	writeJSON(w, r, http.StatusOK, writeResponse{Payment: toPayment(rec)})
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	loc, city, err := s.resolve(r.Context(), req.RowRef)
	if err != nil {
		writeError(w, r, err)
		return
	}
	due, err := core.ParseDate(strings.TrimSpace(req.DueDate))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.deps.Payments.Reschedule(r.Context(), loc, due, sanitizeInput(req.Remark))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec.City = city
	writeJSON(w, r, http.StatusOK, writeResponse{Payment: toPayment(rec)})
}

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	loc, _, err := s.resolve(r.Context(), req.RowRef)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := sanitizeInput(req.Message)
	if msg == "" {
		writeError(w, r, fmt.Errorf("%w: message is required", errBadRequest))
		return
	}
	if err := s.deps.Payments.AddNote(r.Context(), loc, msg); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolve validates ref and checks that its ledger is one of the scanned
// sources, so the API cannot be pointed at arbitrary files.
func (s *Server) resolve(ctx context.Context, ref RowRef) (core.Locator, string, error) {
	loc, err := ref.Locator()
	if err != nil {
		return core.Locator{}, "", err
	}
	sources, err := s.deps.Sources.SourcesFor(ctx, "")
	if err != nil {
		return core.Locator{}, "", fmt.Errorf("list ledgers: %w", err)
	}
	for _, src := range sources {
		if src.Ledger == loc.Ledger {
			return loc, src.City, nil
		}
	}
	return core.Locator{}, "", fmt.Errorf("%w: %s", errUnknownLedger, loc.Ledger)
}

func mergeReports(a, b services.ScanReport) services.ScanReport {
	return services.ScanReport{
		Scanned:  a.Scanned + b.Scanned,
		Records:  a.Records + b.Records,
		Warnings: a.Warnings + b.Warnings,
		Skipped:  append(a.Skipped, b.Skipped...),
	}
}
