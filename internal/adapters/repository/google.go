package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// NewSheetsService builds a Google Sheets client. With an empty
// credentialsFile, application default credentials are used.
func NewSheetsService(ctx context.Context, credentialsFile string) (*sheets.Service, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return svc, nil
}

// GoogleSheet is one tab of a Google spreadsheet. The first row is the header.
type GoogleSheet struct {
	svc           *sheets.Service
	spreadsheetID string
	name          string

	mu     sync.Mutex
	header []string // cached after the first read
}

// NewGoogleSheet returns the tab called name of the given spreadsheet.
func NewGoogleSheet(svc *sheets.Service, spreadsheetID, name string) *GoogleSheet {
	return &GoogleSheet{svc: svc, spreadsheetID: spreadsheetID, name: name}
}

func (s *GoogleSheet) Name() string { return s.name }

// a1 quotes the tab name for use in an A1 range.
func (s *GoogleSheet) a1(rng string) string {
	quoted := "'" + strings.ReplaceAll(s.name, "'", "''") + "'"
	if rng == "" {
		return quoted
	}
	return quoted + "!" + rng
}

// columnLetter converts a 0-based column index to its A1 letters.
func columnLetter(i int) string {
	var out []byte
	for i++; i > 0; i = (i - 1) / 26 {
		out = append([]byte{byte('A' + (i-1)%26)}, out...)
	}
	return string(out)
}

// rawInput stores values exactly as sent. Text that looks like a formula or
// a number stays text.
const rawInput = "RAW"

// numericColumns are written as numbers so the sheet can still sum and sort
// them; every other cell is written as text.
var numericColumns = []string{ColElo, ColVotes, ColTotalVotes, ColWeeklyVotes}

func cellValue(column, v string) any {
	if columnIndex(numericColumns, column) < 0 {
		return v
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return v
	}
	return f
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (s *GoogleSheet) Records(ctx context.Context) ([]string, [][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("")).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("get values: %w", err)
	}
	if len(resp.Values) == 0 {
		s.setHeader(nil)
		return nil, nil, nil
	}

	header := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		header[i] = cellString(v)
	}
	rows := make([][]string, 0, len(resp.Values)-1)
	for _, raw := range resp.Values[1:] {
		row := make([]string, len(header))
		for i, v := range raw {
			if i < len(row) {
				row[i] = cellString(v)
			}
		}
		rows = append(rows, row)
	}
	s.setHeader(header)
	return header, rows, nil
}

func (s *GoogleSheet) setHeader(h []string) {
	s.mu.Lock()
	s.header = h
	s.mu.Unlock()
}

func (s *GoogleSheet) cachedHeader(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	h := s.header
	s.mu.Unlock()
	if len(h) > 0 {
		return h, nil
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("1:1")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get header: %w", err)
	}
	if len(resp.Values) > 0 {
		for _, v := range resp.Values[0] {
			h = append(h, cellString(v))
		}
	}
	s.setHeader(h)
	return h, nil
}

func (s *GoogleSheet) BatchUpdate(ctx context.Context, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	header, err := s.cachedHeader(ctx)
	if err != nil {
		return err
	}

	data := make([]*sheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		col := columnIndex(header, u.Column)
		if col < 0 {
			return fmt.Errorf("sheet %s: unknown column %q", s.name, u.Column)
		}
		// Data row 0 lives on spreadsheet row 2, under the header.
		data = append(data, &sheets.ValueRange{
			Range:  s.a1(fmt.Sprintf("%s%d", columnLetter(col), u.Row+2)),
			Values: [][]any{{cellValue(u.Column, u.Value)}},
		})
	}
	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: rawInput, Data: data}
	if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch update: %w", err)
	}
	return nil
}

func (s *GoogleSheet) Append(ctx context.Context, row []string) error {
	header, err := s.cachedHeader(ctx)
	if err != nil {
		return err
	}
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = cellValue(cell(header, i), v)
	}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.a1(""), &sheets.ValueRange{Values: [][]any{values}}).
		ValueInputOption(rawInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

func (s *GoogleSheet) EnsureHeader(ctx context.Context, header []string) error {
	existing, err := s.cachedHeader(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	values := make([]any, len(header))
	for i, v := range header {
		values[i] = v
	}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.a1("A1"), &sheets.ValueRange{Values: [][]any{values}}).
		ValueInputOption(rawInput).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	s.setHeader(append([]string(nil), header...))
	return nil
}
