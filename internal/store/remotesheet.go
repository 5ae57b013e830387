package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/JonMunkholm/richway/internal/core"
)

// ErrNotConnected is returned by a remote sheet that has no usable client.
var ErrNotConnected = errors.New("remote sheet: not connected")

// remoteHeader is written to an empty worksheet so exports can map columns.
var remoteHeader = []string{"Name", "Email", "Phone", "City", "UserID", "Time"}

// sheetAPI is the slice of the Sheets API the remote store needs. It always
// targets the first worksheet of one spreadsheet.
type sheetAPI interface {
	EnsureHeader(ctx context.Context, header []string) error
	AppendRow(ctx context.Context, values []string) error
	Rows(ctx context.Context) ([][]string, error)
}

// RemoteSheet appends records to a Google spreadsheet. Appends are best
// effort: the submission flow logs their failures and carries on.
type RemoteSheet struct {
	api sheetAPI
}

// NewRemoteSheet authenticates with a service account, whose privateKey is
// PEM text, and prepares the first worksheet of sheetID. It always returns a
// usable store; a non-nil error means appends will fail until the problem is
// fixed, and callers are expected to log it rather than exit.
func NewRemoteSheet(ctx context.Context, accountEmail, privateKey, sheetID string) (*RemoteSheet, error) {
	if accountEmail == "" || privateKey == "" || sheetID == "" {
		return &RemoteSheet{}, fmt.Errorf("%w: GOOGLE_SERVICE_ACCOUNT_EMAIL, GOOGLE_PRIVATE_KEY and GOOGLE_SHEET_ID are required", ErrNotConnected)
	}

	conf := &jwt.Config{
		Email:      accountEmail,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(context.Background())))
	if err != nil {
		return &RemoteSheet{}, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	s := &RemoteSheet{api: &googleSheet{svc: svc, spreadsheetID: sheetID}}
	if err := s.api.EnsureHeader(ctx, remoteHeader); err != nil {
		return s, fmt.Errorf("prepare spreadsheet %s: %w", sheetID, err)
	}
	return s, nil
}

// Append adds one row to the first worksheet.
func (s *RemoteSheet) Append(ctx context.Context, rec core.Record) error {
	if s.api == nil {
		return ErrNotConnected
	}
	row := []string{rec.Name, rec.Email, rec.Phone, rec.City, rec.UserID, formatTime(rec.Time)}
	if err := s.api.AppendRow(ctx, row); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// Export reads the worksheet back and renders it.
func (s *RemoteSheet) Export(ctx context.Context) ([]byte, error) {
	if s.api == nil {
		return nil, ErrNotConnected
	}
	rows, err := s.api.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return WriteWorkbook(recordsFromRows(rows))
}

// BestEffort reports that append failures must not fail a submission.
func (s *RemoteSheet) BestEffort() bool { return true }

func (s *RemoteSheet) Backend() string { return "sheets" }

func (s *RemoteSheet) Close(context.Context) error { return nil }

// googleSheet implements sheetAPI with the Sheets v4 client.
type googleSheet struct {
	svc           *sheets.Service
	spreadsheetID string

	mu    sync.Mutex
	title string
}

// worksheet resolves and caches the title of the first worksheet.
func (g *googleSheet) worksheet(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.title != "" {
		return g.title, nil
	}

	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no worksheets", g.spreadsheetID)
	}
	g.title = ss.Sheets[0].Properties.Title
	return g.title, nil
}

func (g *googleSheet) EnsureHeader(ctx context.Context, header []string) error {
	title, err := g.worksheet(ctx)
	if err != nil {
		return err
	}
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, a1(title, "1:1")).Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(resp.Values) > 0 {
		return nil
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(header)}}
	_, err = g.svc.Spreadsheets.Values.Update(g.spreadsheetID, a1(title, "A1"), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (g *googleSheet) AppendRow(ctx context.Context, values []string) error {
	title, err := g.worksheet(ctx)
	if err != nil {
		return err
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(values)}}
	_, err = g.svc.Spreadsheets.Values.Append(g.spreadsheetID, a1(title, ""), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (g *googleSheet) Rows(ctx context.Context) ([][]string, error) {
	title, err := g.worksheet(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, a1(title, "")).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return rows, nil
}

// a1 builds an A1 range on the named worksheet, quoting the title.
func a1(title, cells string) string {
	r := "'" + strings.ReplaceAll(title, "'", "''") + "'"
	if cells != "" {
		r += "!" + cells
	}
	return r
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
