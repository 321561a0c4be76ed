// Package google writes mirrored sheets to a Google spreadsheet through the
// Sheets v4 API using service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

// Ensure interface conformance
var (
	_ ports.MirrorWriter = (*Client)(nil)
	_ ports.MirrorReader = (*Client)(nil)
)

// Credentials names a service account key, inline or on disk (JSON wins),
// or an OAuth client secret plus a token saved by Authorize. The service
// account is used when both are set.
type Credentials struct {
	JSON string
	File string

	OAuthClientFile string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	mu    sync.Mutex
	known map[string]bool
}

// New creates a client for spreadsheetID authenticated with creds. Extra
// options are appended after the credentials.
func New(ctx context.Context, spreadsheetID string, creds Credentials, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	auth, err := creds.option(ctx)
	if err != nil {
		return nil, err
	}

	all := append([]goption.ClientOption{auth, goption.WithScopes(gsheet.SpreadsheetsScope)}, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, spreadsheetID, logger), nil
}

func newClient(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(log.ComponentSheets),
		known:         make(map[string]bool),
	}
}

func (c Credentials) option(ctx context.Context) (goption.ClientOption, error) {
	if c.JSON == "" && c.File == "" && c.OAuthTokenFile != "" {
		clientJSON, err := os.ReadFile(c.OAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		cfg, err := OAuthConfig(clientJSON, "")
		if err != nil {
			return nil, err
		}
		tok, err := LoadToken(c.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		return goption.WithTokenSource(cfg.TokenSource(ctx, tok)), nil
	}
	data, err := c.load()
	if err != nil {
		return nil, err
	}
	return goption.WithCredentialsJSON(data), nil
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case strings.TrimSpace(c.File) != "":
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_OAUTH_TOKEN_FILE)")
	}
}

// WriteSheet replaces the content of title with rows, adding the sheet to
// the spreadsheet first when it does not exist.
func (c *Client) WriteSheet(ctx context.Context, title string, rows [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureSheet(ctx, title); err != nil {
		return err
	}

	all := quoteTitle(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, all, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", title, err)
	}
	if len(rows) == 0 {
		return nil
	}

	rng := quoteTitle(title) + "!A1"
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	c.logger.DebugContext(ctx, "Sheet rewritten", log.FieldSheetsRange, rng, log.FieldRows, len(rows))
	return nil
}

// ReadSheet returns every non-empty row of title.
func (c *Client) ReadSheet(ctx context.Context, title string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteTitle(title)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", title, err)
	}
	return resp.Values, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known[title] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			c.known[sh.Properties.Title] = true
		}
	}
	if c.known[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	c.known[title] = true
	c.logger.InfoContext(ctx, "Added sheet", "title", title)
	return nil
}

// quoteTitle wraps a sheet title for A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
