package repository_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/draftelo/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type sheetsRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeSheetsAPI answers the Sheets values endpoints with a fixed grid.
type fakeSheetsAPI struct {
	mu       sync.Mutex
	grid     [][]any
	requests []sheetsRequest
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, sheetsRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	grid := f.grid
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodGet {
		if strings.HasSuffix(r.URL.Path, "!1:1") && len(grid) > 0 {
			grid = grid[:1]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": grid})
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func (f *fakeSheetsAPI) last() sheetsRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newFakeSheet(t *testing.T, grid [][]any) (*repository.GoogleSheet, *fakeSheetsAPI) {
	t.Helper()
	api := &fakeSheetsAPI{grid: grid}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return repository.NewGoogleSheet(svc, "spreadsheet-1", "Sheet1"), api
}

func TestGoogleSheet(t *testing.T) {
	Convey("Given a Google sheet with a header and two rows", t, func() {
		ctx := context.Background()
		sheet, api := newFakeSheet(t, [][]any{
			{"name", "elo", "pos"},
			{"Josh Allen", 1600, "QB"},
			{"Jalen Hurts"},
		})

		Convey("When reading records", func() {
			header, rows, err := sheet.Records(ctx)

			Convey("Then values are stringified and padded", func() {
				So(err, ShouldBeNil)
				So(header, ShouldResemble, []string{"name", "elo", "pos"})
				So(rows, ShouldResemble, [][]string{
					{"Josh Allen", "1600", "QB"},
					{"Jalen Hurts", "", ""},
				})
				So(api.last().Method, ShouldEqual, http.MethodGet)
				So(api.last().Path, ShouldContainSubstring, "/v4/spreadsheets/spreadsheet-1/values/'Sheet1'")
			})
		})

		Convey("When updating cells in a batch", func() {
			_, _, err := sheet.Records(ctx)
			So(err, ShouldBeNil)
			err = sheet.BatchUpdate(ctx, []repository.CellUpdate{
				{Row: 0, Column: "elo", Value: "1612"},
				{Row: 1, Column: "ELO", Value: "1488"},
			})

			Convey("Then one request addresses A1 cells below the header", func() {
				So(err, ShouldBeNil)
				req := api.last()
				So(req.Method, ShouldEqual, http.MethodPost)
				So(req.Path, ShouldEndWith, "values:batchUpdate")
				So(req.Body, ShouldContainSubstring, `"range":"'Sheet1'!B2"`)
				So(req.Body, ShouldContainSubstring, `"range":"'Sheet1'!B3"`)
				So(req.Body, ShouldContainSubstring, `"valueInputOption":"RAW"`)
				So(req.Body, ShouldContainSubstring, `"values":[[1612]]`)
			})
		})

		Convey("When updating an unknown column", func() {
			err := sheet.BatchUpdate(ctx, []repository.CellUpdate{{Row: 0, Column: "team", Value: "BUF"}})

			Convey("Then the header is fetched and the update rejected", func() {
				So(err, ShouldNotBeNil)
				So(api.last().Path, ShouldEndWith, "!1:1")
			})
		})

		Convey("When appending a row", func() {
			err := sheet.Append(ctx, []string{"Joe Burrow", "1500", "007"})

			Convey("Then rows are inserted after the table as raw values", func() {
				So(err, ShouldBeNil)
				req := api.last()
				So(req.Path, ShouldEndWith, ":append")
				So(req.Query, ShouldContainSubstring, "insertDataOption=INSERT_ROWS")
				So(req.Query, ShouldContainSubstring, "valueInputOption=RAW")
				So(req.Body, ShouldContainSubstring, `["Joe Burrow",1500,"007"]`)
			})
		})

		Convey("When a header already exists", func() {
			err := sheet.EnsureHeader(ctx, []string{"x"})

			Convey("Then nothing is written", func() {
				So(err, ShouldBeNil)
				So(api.last().Method, ShouldEqual, http.MethodGet)
			})
		})
	})

	Convey("Given an empty Google sheet", t, func() {
		ctx := context.Background()
		sheet, api := newFakeSheet(t, nil)

		Convey("When ensuring the header", func() {
			err := sheet.EnsureHeader(ctx, repository.UsersHeader)

			Convey("Then the header is written to A1", func() {
				So(err, ShouldBeNil)
				req := api.last()
				So(req.Method, ShouldEqual, http.MethodPut)
				So(req.Path, ShouldEndWith, "!A1")
				So(req.Body, ShouldContainSubstring, "weekly_votes")
			})
		})
	})

	Convey("Given a users sheet in Google Sheets", t, func() {
		ctx := context.Background()
		sheet, api := newFakeSheet(t, [][]any{{"username", "total_votes", "weekly_votes", "last_voted"}})
		ledger := repository.NewLedger(sheet, repository.WithClock(func() time.Time { return monday }))

		Convey("When a user whose name looks like a formula votes", func() {
			err := ledger.RecordTouch(ctx, "=1+1", true)

			Convey("Then the name is stored as text and the counts as numbers", func() {
				So(err, ShouldBeNil)
				req := api.last()
				So(req.Path, ShouldEndWith, ":append")
				So(req.Query, ShouldContainSubstring, "valueInputOption=RAW")
				So(req.Query, ShouldNotContainSubstring, "USER_ENTERED")
				So(req.Body, ShouldContainSubstring, `["=1+1",1,1,"2025-09-08"]`)
			})
		})
	})
}
