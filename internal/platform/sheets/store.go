// Package sheets implements the status store on Google Sheets, with Drive metadata for
// the modification time, plus an in-memory store for local runs and tests.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"finitefield.org/statusboard/internal/status"
)

var tracer = otel.Tracer("finitefield.org/statusboard/internal/platform/sheets")

// Scopes are the OAuth scopes the store needs.
var Scopes = []string{sheetsapi.SpreadsheetsScope, drive.DriveMetadataReadonlyScope}

// Config locates the spreadsheet and its worksheets.
type Config struct {
	SpreadsheetID string
	StatusSheet   string
	HistorySheet  string
}

// Store reads and writes the status worksheet and appends to the history worksheet.
type Store struct {
	cfg    Config
	values *sheetsapi.SpreadsheetsValuesService
	sheets *sheetsapi.SpreadsheetsService
	files  *drive.FilesService
}

var _ status.Store = (*Store)(nil)

// CredentialOptions turns inline JSON or a file path into client options. With neither,
// Application Default Credentials apply.
func CredentialOptions(credentialsJSON, credentialsFile string) []option.ClientOption {
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credentialsJSON))}
	case strings.TrimSpace(credentialsFile) != "":
		return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
	default:
		return nil
	}
}

// NewStore builds Sheets and Drive clients for cfg. Scopes are added before opts so
// callers may override them.
func NewStore(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if cfg.StatusSheet == "" {
		cfg.StatusSheet = "Sheet1"
	}
	if cfg.HistorySheet == "" {
		cfg.HistorySheet = "History"
	}

	clientOpts := append([]option.ClientOption{option.WithScopes(Scopes...)}, opts...)
	sheetsSvc, err := sheetsapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create sheets client: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create drive client: %w", err)
	}
	return &Store{
		cfg:    cfg,
		values: sheetsSvc.Spreadsheets.Values,
		sheets: sheetsSvc.Spreadsheets,
		files:  driveSvc.Files,
	}, nil
}

// ReadTable returns the status worksheet with unformatted cell values.
func (s *Store) ReadTable(ctx context.Context) (status.Table, error) {
	ctx, span := s.start(ctx, "sheets.ReadTable")
	defer span.End()

	resp, err := s.values.Get(s.cfg.SpreadsheetID, quoteSheet(s.cfg.StatusSheet)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return status.Table{}, s.fail(span, "read status sheet", err)
	}

	var table status.Table
	if len(resp.Values) == 0 {
		return table, nil
	}
	for _, cell := range resp.Values[0] {
		table.Header = append(table.Header, fmt.Sprint(cell))
	}
	table.Rows = resp.Values[1:]
	span.SetAttributes(attribute.Int("sheets.rows", len(table.Rows)))
	return table, nil
}

// WriteCell writes one value at a 1-indexed row and column of the status worksheet.
func (s *Store) WriteCell(ctx context.Context, row, column, value int) error {
	ctx, span := s.start(ctx, "sheets.WriteCell")
	defer span.End()

	rng := quoteSheet(s.cfg.StatusSheet) + "!" + CellRef(row, column)
	span.SetAttributes(attribute.String("sheets.range", rng))
	_, err := s.values.Update(s.cfg.SpreadsheetID, rng, &sheetsapi.ValueRange{
		Values: [][]interface{}{{value}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return s.fail(span, "write "+rng, err)
	}
	return nil
}

// AppendHistory appends one row below the last row of the history worksheet.
func (s *Store) AppendHistory(ctx context.Context, values []any) error {
	ctx, span := s.start(ctx, "sheets.AppendHistory")
	defer span.End()

	_, err := s.values.Append(s.cfg.SpreadsheetID, quoteSheet(s.cfg.HistorySheet), &sheetsapi.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return s.fail(span, "append history", err)
	}
	return nil
}

// ModifiedTime returns the spreadsheet's Drive modification time (RFC 3339, UTC).
func (s *Store) ModifiedTime(ctx context.Context) (string, error) {
	ctx, span := s.start(ctx, "sheets.ModifiedTime")
	defer span.End()

	file, err := s.files.Get(s.cfg.SpreadsheetID).
		Fields("modifiedTime").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", s.fail(span, "read modified time", err)
	}
	return file.ModifiedTime, nil
}

// Ping checks that the spreadsheet is reachable with the configured credentials.
func (s *Store) Ping(ctx context.Context) error {
	ctx, span := s.start(ctx, "sheets.Ping")
	defer span.End()

	if _, err := s.sheets.Get(s.cfg.SpreadsheetID).Fields("spreadsheetId").Context(ctx).Do(); err != nil {
		return s.fail(span, "ping spreadsheet", err)
	}
	return nil
}

func (s *Store) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("sheets.spreadsheet_id", s.cfg.SpreadsheetID)),
	)
}

func (s *Store) fail(span trace.Span, op string, err error) error {
	wrapped := WrapError("sheets: "+op, err)
	span.RecordError(wrapped)
	span.SetStatus(codes.Error, op)
	return wrapped
}

// CellRef converts a 1-indexed row and column into A1 notation, e.g. (3, 2) is "B3".
func CellRef(row, column int) string {
	return ColumnLetters(column) + fmt.Sprint(row)
}

// ColumnLetters converts a 1-indexed column to its letters: 1 is "A", 27 is "AA".
func ColumnLetters(column int) string {
	if column <= 0 {
		return ""
	}
	var out []byte
	for column > 0 {
		column--
		out = append([]byte{byte('A' + column%26)}, out...)
		column /= 26
	}
	return string(out)
}

// quoteSheet quotes a worksheet name for A1 ranges, doubling embedded quotes.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
