package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"payminder/internal/core"
	"payminder/internal/ledger"
	"payminder/internal/log"
)

// DefaultSheet is the tab used when a locator names only the spreadsheet.
const DefaultSheet = "Payments"

type Client struct {
	svc    *gsheet.Service
	logger *log.Logger
	today  func() core.Date
	newID  func() string
}

// Ensure interface conformance
var _ ledger.Store = (*Client)(nil)

// Locator builds the ledger name for a tab of a spreadsheet.
func Locator(spreadsheetID, sheet string) string {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return ledger.SchemeSheets + ":" + spreadsheetID + "/" + sheet
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, logger *log.Logger) *Client {
	return &Client{
		svc:    svc,
		logger: logger.WithComponent(log.ComponentLedger),
		today:  core.Today,
		newID:  uuid.NewString,
	}
}

// NewFromEnv creates a Sheets client. A saved OAuth user token
// (GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE) wins; otherwise
// Service Account credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, logger *log.Logger) (*Client, error) {
	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, logger), nil
}

func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	tok, err := tokenFromEnv()
	if err != nil {
		return nil, err
	}
	if tok != nil {
		cfg, err := OAuthConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("oauth token set but client credentials missing: %w", err)
		}
		logger.InfoContext(ctx, "Using OAuth user credentials")
		service, err := gsheet.NewService(ctx, goption.WithTokenSource(cfg.TokenSource(ctx, tok)))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) ReadEntries(ctx context.Context, name string) ([]ledger.Row, error) {
	ref, err := parseLocator(name)
	if err != nil {
		return nil, &core.SourceError{Ledger: name, Err: err}
	}
	g, err := c.readGrid(ctx, ref)
	if err != nil {
		return nil, &core.SourceError{Ledger: name, Err: err}
	}
	return g.Entries(name)
}

func (c *Client) WriteUpdate(ctx context.Context, loc core.Locator, u ledger.Update) error {
	ref, err := parseLocator(loc.Ledger)
	if err != nil {
		return &core.SourceError{Ledger: loc.Ledger, Err: err}
	}
	g, err := c.readGrid(ctx, ref)
	if err != nil {
		return &core.SourceError{Ledger: loc.Ledger, Err: err}
	}
	pos, err := g.Resolve(loc)
	if err != nil {
		return err
	}

	width := len(g.Header)
	g.Apply(pos, u)

	data := []*gsheet.ValueRange{rowRange(ref.sheet, pos+2, g.Rows[pos], len(g.Header))}
	if len(g.Header) > width {
		data = append(data, headerRange(ref.sheet, g.Header))
	}
	if err := c.batchWrite(ctx, ref, data); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Ledger row updated",
		log.FieldLedger, loc.Ledger,
		log.FieldRow, pos,
		log.FieldRowKey, loc.Key.String())
	return nil
}

func (c *Client) CreateTemplate(ctx context.Context, name string) error {
	ref, err := parseLocator(name)
	if err != nil {
		return err
	}
	if err := c.ensureSheet(ctx, ref); err != nil {
		return err
	}
	g := ledger.TemplateGrid(c.today(), c.newID())
	data := []*gsheet.ValueRange{
		headerRange(ref.sheet, g.Header),
		rowRange(ref.sheet, 2, g.Rows[0], len(g.Header)),
	}
	return c.batchWrite(ctx, ref, data)
}

func (c *Client) AssignKeys(ctx context.Context, name string) (int, error) {
	ref, err := parseLocator(name)
	if err != nil {
		return 0, &core.SourceError{Ledger: name, Err: err}
	}
	g, err := c.readGrid(ctx, ref)
	if err != nil {
		return 0, &core.SourceError{Ledger: name, Err: err}
	}
	width := len(g.Header)
	stamped, err := g.StampIDs(name, c.newID)
	if err != nil || len(stamped) == 0 {
		return 0, err
	}

	col := g.Column(ledger.ColID)
	letter, _ := excelize.ColumnNumberToName(col + 1)
	var data []*gsheet.ValueRange
	if len(g.Header) > width {
		data = append(data, headerRange(ref.sheet, g.Header))
	}
	for _, pos := range stamped {
		data = append(data, &gsheet.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", quoteSheet(ref.sheet), letter, pos+2),
			Values: [][]any{{g.Cell(pos, col).String()}},
		})
	}
	if err := c.batchWrite(ctx, ref, data); err != nil {
		return 0, err
	}
	return len(stamped), nil
}

func (c *Client) readGrid(ctx context.Context, ref sheetRef) (*ledger.Grid, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(ref.spreadsheetID, quoteSheet(ref.sheet)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref.sheet, err)
	}
	return parseValues(resp.Values), nil
}

func (c *Client) batchWrite(ctx context.Context, ref sheetRef, data []*gsheet.ValueRange) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "USER_ENTERED", Data: data}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(ref.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", ref.sheet, err)
	}
	return nil
}

// ensureSheet adds the tab when the spreadsheet does not have it yet.
func (c *Client) ensureSheet(ctx context.Context, ref sheetRef) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(ref.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == ref.sheet {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: ref.sheet}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(ref.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", ref.sheet, err)
	}
	c.logger.InfoContext(ctx, "Created ledger tab", "spreadsheet_id", ref.spreadsheetID, "sheet", ref.sheet)
	return nil
}
