package repository

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/draftelo/internal/domain/model"
	"github.com/okian/draftelo/internal/domain/ranking"
	"github.com/okian/draftelo/pkg/logger"
	"github.com/okian/draftelo/pkg/metrics"
)

// Players sheet columns. Only name is required.
const (
	ColName     = "name"
	ColElo      = "elo"
	ColPosition = "pos"
	ColVotes    = "Votes"
	ColTeam     = "team"
	ColImageURL = "image_url"
)

// PlayersHeader is written into an empty players sheet.
var PlayersHeader = []string{ColName, ColElo, ColPosition, ColVotes, ColTeam, ColImageURL}

const playersStore = "players"

// Players is the rating store.
type Players struct {
	sheet Sheet
	storeConfig
}

// NewPlayers creates a rating store on sheet.
func NewPlayers(sheet Sheet, opts ...Option) *Players {
	return &Players{sheet: sheet, storeConfig: newStoreConfig(opts)}
}

func (p *Players) records(ctx context.Context) (header []string, rows [][]string, err error) {
	err = p.call(ctx, playersStore, "read_all", func(ctx context.Context) error {
		header, rows, err = p.sheet.Records(ctx)
		return err
	})
	return header, rows, err
}

// ReadAll returns every player ordered by rating (descending) with position
// ranks filled in. Missing or unparseable ratings become the default rating
// and missing vote counts become 0.
func (p *Players) ReadAll(ctx context.Context) ([]model.Player, error) {
	header, rows, err := p.records(ctx)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 && len(rows) == 0 {
		return nil, nil
	}

	col := playerColumns(header)
	if col.name < 0 {
		return nil, fmt.Errorf("%w: players sheet %s has no %q column", ErrDataShape, p.sheet.Name(), ColName)
	}
	if col.elo < 0 {
		p.log.Warn(ctx, "players sheet has no rating column, using default", logger.Float64("default", p.defaultRating))
		metrics.RecordDataShapeRecovery(playersStore, ColElo)
	}

	players := make([]model.Player, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(cell(row, col.name))
		if name == "" {
			continue
		}
		pl := model.Player{
			Name:     name,
			Rating:   p.defaultRating,
			HasVotes: col.votes >= 0,
			Position: strings.TrimSpace(cell(row, col.position)),
			Team:     strings.TrimSpace(cell(row, col.team)),
			ImageURL: strings.TrimSpace(cell(row, col.image)),
		}
		if col.elo >= 0 {
			if r, ok := parseRating(cell(row, col.elo)); ok {
				pl.Rating = r
			} else {
				p.log.Debug(ctx, "unparseable rating, using default",
					logger.String("player", name), logger.String("value", cell(row, col.elo)))
				metrics.RecordDataShapeRecovery(playersStore, ColElo)
			}
		}
		if col.votes >= 0 {
			v, ok := parseCount(cell(row, col.votes))
			if !ok {
				metrics.RecordDataShapeRecovery(playersStore, ColVotes)
			}
			pl.Votes = v
		}
		players = append(players, pl)
	}

	ranking.AssignPositionRanks(players)
	ranking.SortByRating(players)
	metrics.UpdatePlayersTotal(len(players))
	return players, nil
}

// WriteRating stores a new rating for name. The write is skipped when the
// integer-rounded rating equals the stored one.
func (p *Players) WriteRating(ctx context.Context, name string, rating float64) error {
	return p.apply(ctx, "write_rating", map[string]float64{name: rating}, nil)
}

// IncrementVoteCount adds one to the vote count of name. It is a no-op when
// the sheet has no Votes column.
func (p *Players) IncrementVoteCount(ctx context.Context, name string) error {
	return p.apply(ctx, "increment_votes", nil, []string{name})
}

// ApplyVote writes new ratings and vote-count increments in one batch.
// No cell is written unless every referenced player exists.
func (p *Players) ApplyVote(ctx context.Context, ratings map[string]float64, increments []string) error {
	return p.apply(ctx, "apply_vote", ratings, increments)
}

func (p *Players) apply(ctx context.Context, op string, ratings map[string]float64, increments []string) error {
	header, rows, err := p.records(ctx)
	if err != nil {
		return err
	}
	col := playerColumns(header)
	if col.name < 0 {
		return fmt.Errorf("%w: players sheet %s has no %q column", ErrDataShape, p.sheet.Name(), ColName)
	}

	index := make(map[string]int, len(rows))
	for i, row := range rows {
		key := model.Key(cell(row, col.name))
		if _, dup := index[key]; !dup && key != "" {
			index[key] = i
		}
	}
	locate := func(name string) (int, error) {
		i, ok := index[model.Key(name)]
		if !ok {
			return 0, notFound("player", name)
		}
		return i, nil
	}

	var updates []CellUpdate
	for name, r := range ratings {
		i, err := locate(name)
		if err != nil {
			return err
		}
		if col.elo < 0 {
			return fmt.Errorf("%w: players sheet %s has no %q column", ErrDataShape, p.sheet.Name(), ColElo)
		}
		next := math.Round(r)
		if last, ok := parseRating(cell(rows[i], col.elo)); ok && math.Round(last) == next {
			metrics.RecordRedundantWriteSkipped()
			continue
		}
		updates = append(updates, CellUpdate{Row: i, Column: header[col.elo], Value: formatNumber(next)})
	}
	for _, name := range increments {
		i, err := locate(name)
		if err != nil {
			return err
		}
		if col.votes < 0 {
			continue
		}
		n, _ := parseCount(cell(rows[i], col.votes))
		updates = append(updates, CellUpdate{Row: i, Column: header[col.votes], Value: strconv.Itoa(n + 1)})
	}

	if len(updates) == 0 {
		return nil
	}
	return p.call(ctx, playersStore, op, func(ctx context.Context) error {
		return p.sheet.BatchUpdate(ctx, updates)
	})
}

type playerCols struct {
	name, elo, position, votes, team, image int
}

func playerColumns(header []string) playerCols {
	return playerCols{
		name:     columnIndex(header, ColName),
		elo:      columnIndex(header, ColElo),
		position: columnIndex(header, ColPosition),
		votes:    columnIndex(header, ColVotes),
		team:     columnIndex(header, ColTeam),
		image:    columnIndex(header, ColImageURL),
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseRating parses a finite rating.
func parseRating(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// maxCount is the largest counter float64 holds exactly. Larger cells are
// treated as malformed rather than converted.
const maxCount = 1 << 53

// parseCount parses a non-negative counter, accepting "3" and "3.0".
// Empty cells count as 0 without being a shape error.
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > maxCount || math.IsNaN(f) {
		return 0, false
	}
	return int(f), true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
