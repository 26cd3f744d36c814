package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/draftelo/internal/domain/model"
	"github.com/okian/draftelo/pkg/logger"
	"github.com/okian/draftelo/pkg/metrics"
)

// Users sheet columns.
const (
	ColUsername    = "username"
	ColTotalVotes  = "total_votes"
	ColWeeklyVotes = "weekly_votes"
	ColLastVoted   = "last_voted"
)

// UsersHeader is written into an empty users sheet.
var UsersHeader = []string{ColUsername, ColTotalVotes, ColWeeklyVotes, ColLastVoted}

// DateLayout is the calendar date format of last_voted.
const DateLayout = "2006-01-02"

const ledgerStore = "users"

// Ledger is the participation ledger.
type Ledger struct {
	sheet Sheet
	storeConfig
}

// NewLedger creates a participation ledger on sheet.
func NewLedger(sheet Sheet, opts ...Option) *Ledger {
	return &Ledger{sheet: sheet, storeConfig: newStoreConfig(opts)}
}

func (l *Ledger) records(ctx context.Context) (header []string, rows [][]string, err error) {
	err = l.call(ctx, ledgerStore, "read_all", func(ctx context.Context) error {
		header, rows, err = l.sheet.Records(ctx)
		return err
	})
	return header, rows, err
}

// Today returns the current calendar date in the ledger's timezone.
func (l *Ledger) Today() time.Time {
	now := l.now().In(l.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, l.location)
}

// ReadAll returns every user with lower-cased usernames.
func (l *Ledger) ReadAll(ctx context.Context) ([]model.User, error) {
	header, rows, err := l.records(ctx)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, nil
	}
	col := userColumns(header)
	if col.username < 0 {
		return nil, fmt.Errorf("%w: users sheet %s has no %q column", ErrDataShape, l.sheet.Name(), ColUsername)
	}

	users := make([]model.User, 0, len(rows))
	for _, row := range rows {
		u, ok := l.parseUser(row, col)
		if ok {
			users = append(users, u)
		}
	}
	metrics.UpdateUsersTotal(len(users))
	return users, nil
}

func (l *Ledger) parseUser(row []string, col userCols) (model.User, bool) {
	name := model.Key(cell(row, col.username))
	if name == "" {
		return model.User{}, false
	}
	total, ok := parseCount(cell(row, col.total))
	if !ok {
		metrics.RecordDataShapeRecovery(ledgerStore, ColTotalVotes)
	}
	weekly, ok := parseCount(cell(row, col.weekly))
	if !ok {
		metrics.RecordDataShapeRecovery(ledgerStore, ColWeeklyVotes)
	}
	return model.User{
		Username:    name,
		TotalVotes:  total,
		WeeklyVotes: weekly,
		LastVoted:   l.parseDate(cell(row, col.last)),
	}, true
}

func (l *Ledger) parseDate(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), l.location)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RecordTouch creates or updates the ledger row of username. Only touches
// with countsAsVote increment the counters; every touch stamps last_voted.
// A repeated track-only touch on the same day writes nothing.
func (l *Ledger) RecordTouch(ctx context.Context, username string, countsAsVote bool) error {
	key := model.Key(username)
	if key == "" {
		return fmt.Errorf("%w: empty username", ErrInvalidArgument)
	}

	header, rows, err := l.records(ctx)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		header = UsersHeader
		if err := l.call(ctx, ledgerStore, "ensure_header", func(ctx context.Context) error {
			return l.sheet.EnsureHeader(ctx, header)
		}); err != nil {
			return err
		}
	}
	col := userColumns(header)
	if col.username < 0 {
		return fmt.Errorf("%w: users sheet %s has no %q column", ErrDataShape, l.sheet.Name(), ColUsername)
	}

	today := l.Today()
	stamp := today.Format(DateLayout)

	for i, row := range rows {
		if model.Key(cell(row, col.username)) != key {
			continue
		}
		u, _ := l.parseUser(row, col)
		weekly := u.WeeklyVotes
		if model.WeeklyResetDue(u.LastVoted, today) {
			weekly = 0
		}
		total := u.TotalVotes
		if countsAsVote {
			total++
			weekly++
		}

		var updates []CellUpdate
		set := func(c int, value, current string) {
			if c >= 0 && strings.TrimSpace(current) != value {
				updates = append(updates, CellUpdate{Row: i, Column: header[c], Value: value})
			}
		}
		set(col.total, strconv.Itoa(total), cell(row, col.total))
		set(col.weekly, strconv.Itoa(weekly), cell(row, col.weekly))
		set(col.last, stamp, cell(row, col.last))
		if len(updates) == 0 {
			return nil
		}
		return l.call(ctx, ledgerStore, "touch", func(ctx context.Context) error {
			return l.sheet.BatchUpdate(ctx, updates)
		})
	}

	count := "0"
	if countsAsVote {
		count = "1"
	}
	row := rowFor(header, map[string]string{
		ColUsername:    key,
		ColTotalVotes:  count,
		ColWeeklyVotes: count,
		ColLastVoted:   stamp,
	})
	l.log.Info(ctx, "new ledger user", logger.String("username", key))
	return l.call(ctx, ledgerStore, "append", func(ctx context.Context) error {
		return l.sheet.Append(ctx, row)
	})
}

type userCols struct {
	username, total, weekly, last int
}

func userColumns(header []string) userCols {
	return userCols{
		username: columnIndex(header, ColUsername),
		total:    columnIndex(header, ColTotalVotes),
		weekly:   columnIndex(header, ColWeeklyVotes),
		last:     columnIndex(header, ColLastVoted),
	}
}
