// Package sheets implements the report sink on top of the Google Sheets API.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Client addresses one spreadsheet.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
	logger        *slog.Logger

	mu  sync.Mutex
	ids map[string]int64
}

// New authenticates with a service account key file.
func New(ctx context.Context, credentialsFile, spreadsheetID string, logger *slog.Logger) (*Client, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, logger), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheets.Service, spreadsheetID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.With("system", "sheets"),
		ids:           make(map[string]int64),
	}
}

// quote builds an A1 range covering the whole sheet.
func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// ReadRows returns every non-empty row of sheet as strings.
func (c *Client) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quote(sheet)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// EnsureSheet returns the id of sheet, adding it when missing.
func (c *Client) EnsureSheet(ctx context.Context, sheet string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.ids[sheet]; ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.ids[s.Properties.Title] = s.Properties.SheetId
		}
	}
	if id, ok := c.ids[sheet]; ok {
		return id, nil
	}

	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{Title: sheet}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %q: empty reply", sheet)
	}

	id := resp.Replies[0].AddSheet.Properties.SheetId
	c.ids[sheet] = id
	c.logger.Info("Created sheet", "sheet", sheet, "sheet_id", id)
	return id, nil
}

// ClearSheet removes every value from sheet, keeping formatting.
func (c *Client) ClearSheet(ctx context.Context, sheet string) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quote(sheet), &gsheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// Value input options. Data is stored verbatim so customer and product
// names starting with "=", "+" or "-" stay text.
const (
	inputRaw         = "RAW"
	inputUserEntered = "USER_ENTERED"
)

// WriteRows writes rows starting at A1, stored as literal text.
func (c *Client) WriteRows(ctx context.Context, sheet string, rows [][]string) error {
	return c.update(ctx, sheet, rows, inputRaw)
}

// WriteFormulas writes rows starting at A1 and lets formulas evaluate.
func (c *Client) WriteFormulas(ctx context.Context, sheet string, rows [][]string) error {
	return c.update(ctx, sheet, rows, inputUserEntered)
}

func (c *Client) update(ctx context.Context, sheet string, rows [][]string, input string) error {
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quote(sheet)+"!A1", valueRange(rows)).
		ValueInputOption(input).
		Context(ctx).
		Do()
	return err
}

// AppendRows appends rows after the last non-empty row.
func (c *Client) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, quote(sheet), valueRange(rows)).
		ValueInputOption(inputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func valueRange(rows [][]string) *gsheets.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	return &gsheets.ValueRange{Values: values}
}
