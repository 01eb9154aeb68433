package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"payminder/internal/core"
	"payminder/internal/log"
	"payminder/internal/middleware/trace"
	"payminder/internal/services"
)

type paymentJSON struct {
	Name            string      `json:"name"`
	AmountRemaining string      `json:"amount_remaining"`
	DueDate         core.Date   `json:"due_date"`
	Status          core.Status `json:"status"`
	Email           string      `json:"email,omitempty"`
	Remarks         string      `json:"remarks,omitempty"`
	PaymentDate     string      `json:"payment_date,omitempty"`
	City            string      `json:"city"`
	Ledger          string      `json:"ledger"`
	Key             core.RowKey `json:"key"`
	Position        int         `json:"position"`
}

type classifiedJSON struct {
	paymentJSON
	DaysOverdue  *int          `json:"days_overdue,omitempty"`
	DaysUntilDue *int          `json:"days_until_due,omitempty"`
	Priority     core.Priority `json:"priority,omitempty"`
}

type skippedJSON struct {
	Ledger string `json:"ledger"`
	City   string `json:"city"`
	Error  string `json:"error"`
}

type reportJSON struct {
	Scanned  int           `json:"scanned"`
	Records  int           `json:"records"`
	Warnings int           `json:"warnings"`
	Complete bool          `json:"complete"`
	Skipped  []skippedJSON `json:"skipped"`
}

type summaryJSON struct {
	TotalPayments    int    `json:"total_payments"`
	PaidPayments     int    `json:"paid_payments"`
	PartialPayments  int    `json:"partial_payments"`
	UnpaidPayments   int    `json:"unpaid_payments"`
	TotalAmountDue   string `json:"total_amount_due"`
	OverduePayments  int    `json:"overdue_payments"`
	DueToday         int    `json:"due_today"`
	UpcomingPayments int    `json:"upcoming_payments"`
}

type citySummaryJSON struct {
	City string `json:"city"`
	summaryJSON
}

type notificationJSON struct {
	ID        int64                 `json:"id"`
	Kind      core.NotificationKind `json:"kind"`
	Ledger    string                `json:"ledger"`
	Key       core.RowKey           `json:"key"`
	Recipient string                `json:"recipient"`
	Subject   string                `json:"subject"`
	Day       core.Date             `json:"day"`
	Status    core.DeliveryStatus   `json:"status"`
	Error     string                `json:"error,omitempty"`
	CreatedAt string                `json:"created_at"`
}

type errorJSON struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func toPayment(p core.PaymentRecord) paymentJSON {
	return paymentJSON{
		Name:            p.Name,
		AmountRemaining: core.FormatAmount(p.AmountRemaining),
		DueDate:         p.DueDate,
		Status:          p.Status,
		Email:           p.Email,
		Remarks:         p.Remarks,
		PaymentDate:     p.PaymentDate,
		City:            p.City,
		Ledger:          p.Source.Ledger,
		Key:             p.Source.Key,
		Position:        p.Source.Position,
	}
}

func toPayments(records []core.PaymentRecord) []paymentJSON {
	out := make([]paymentJSON, 0, len(records))
	for _, r := range records {
		out = append(out, toPayment(r))
	}
	return out
}

func toClassified(items []core.ClassifiedPayment) []classifiedJSON {
	out := make([]classifiedJSON, 0, len(items))
	for _, c := range items {
		j := classifiedJSON{paymentJSON: toPayment(c.PaymentRecord)}
		switch c.Kind {
		case core.ClassDue:
			days := c.DaysOverdue
			j.DaysOverdue = &days
			j.Priority = c.Priority
		case core.ClassUpcoming:
			days := c.DaysUntilDue
			j.DaysUntilDue = &days
		}
		out = append(out, j)
	}
	return out
}

func toReport(r services.ScanReport) reportJSON {
	out := reportJSON{
		Scanned:  r.Scanned,
		Records:  r.Records,
		Warnings: r.Warnings,
		Complete: r.Complete(),
		Skipped:  make([]skippedJSON, 0, len(r.Skipped)),
	}
	for _, s := range r.Skipped {
		out.Skipped = append(out.Skipped, skippedJSON{Ledger: s.Source.Ledger, City: s.Source.City, Error: s.Err.Error()})
	}
	return out
}

func toSummary(s core.PaymentSummary) summaryJSON {
	return summaryJSON{
		TotalPayments:    s.TotalPayments,
		PaidPayments:     s.PaidPayments,
		PartialPayments:  s.PartialPayments,
		UnpaidPayments:   s.UnpaidPayments,
		TotalAmountDue:   core.FormatAmount(s.TotalAmountDue),
		OverduePayments:  s.OverduePayments,
		DueToday:         s.DueToday,
		UpcomingPayments: s.UpcomingPayments,
	}
}

func toNotifications(ns []core.Notification) []notificationJSON {
	out := make([]notificationJSON, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationJSON{
			ID:        n.ID,
			Kind:      n.Kind,
			Ledger:    n.Source.Ledger,
			Key:       n.Source.Key,
			Recipient: n.Recipient,
			Subject:   n.Subject,
			Day:       n.Day,
			Status:    n.Status,
			Error:     n.Error,
			CreatedAt: n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}

// encodeJSON marshals v with a trailing newline, as json.Encoder would.
func encodeJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := encodeJSON(v)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Encoding response failed", log.FieldError, err)
		writeError(w, r, err)
		return
	}
	writeBody(w, status, body)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errBadRequest), errors.As(err, &maxBytes):
		return http.StatusBadRequest
	case errors.Is(err, errUnknownLedger), errors.Is(err, core.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrWriteConflict), errors.Is(err, errKeyInFlight):
		return http.StatusConflict
	case errors.Is(err, errKeyReused), errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrDateParse), errors.Is(err, core.ErrSchema):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and hides their detail from the
// caller; client errors are echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		msg = http.StatusText(status)
	}
	body, _ := encodeJSON(errorJSON{Error: msg, RequestID: trace.GetRequestID(r.Context())})
	writeBody(w, status, body)
}
