package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab the ledger lives in when none is configured.
const DefaultSheetName = "Ledger"

type Config struct {
	SpreadsheetID string
	SheetName     string
	// Service account credentials, inline or as a file path. When both are
	// empty GOOGLE_APPLICATION_CREDENTIALS is consulted.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// Ensure interface conformance
var (
	_ ports.LedgerStore = (*Client)(nil)
	_ ports.EntryMirror = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account. When opts
// are given they are used instead of the service account options.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}

	if len(opts) == 0 {
		creds, err := credentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID, "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) columns() string {
	return fmt.Sprintf("%s!A:E", c.sheet)
}

// Load reads the ledger tab. A tab with no rows is an empty ledger.
func (c *Client) Load(ctx context.Context) (core.Ledger, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.columns()).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return core.Ledger{}, fmt.Errorf("read ledger sheet: %w", err)
	}
	l, err := ports.DecodeRecords(toRows(resp.Values))
	if err != nil {
		return core.Ledger{}, fmt.Errorf("parse ledger sheet: %w", err)
	}
	return l, nil
}

// Save clears the ledger tab and writes the full snapshot.
func (c *Client) Save(ctx context.Context, l core.Ledger) error {
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.columns(), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear ledger sheet: %w", err)
	}
	vr := &gsheet.ValueRange{Values: toValues(ports.EncodeLedger(l))}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", c.sheet), vr).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("write ledger sheet: %w", err)
	}
	return nil
}

// Append adds one row after the last used row and returns the updated range.
func (c *Client) Append(ctx context.Context, e core.Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	vr := &gsheet.ValueRange{Values: toValues([][]string{ports.EncodeRecord(e)})}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.columns(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append row: %w", err)
	}
	if resp.Updates == nil {
		return "", nil
	}
	return resp.Updates.UpdatedRange, nil
}

// toRows converts API cells to strings. UNFORMATTED_VALUE returns numbers as
// float64, printed here without an exponent.
func toRows(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		out := make([]string, len(row))
		for i, v := range row {
			switch t := v.(type) {
			case string:
				out[i] = t
			case float64:
				out[i] = strconv.FormatFloat(t, 'f', -1, 64)
			case nil:
				out[i] = ""
			default:
				out[i] = fmt.Sprint(t)
			}
		}
		rows = append(rows, out)
	}
	return rows
}

func toValues(rows [][]string) [][]interface{} {
	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		out := make([]interface{}, len(row))
		for i, v := range row {
			out[i] = v
		}
		values = append(values, out)
	}
	return values
}
