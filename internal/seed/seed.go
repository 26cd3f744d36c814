// Package seed loads a YAML roster and writes missing players and values
// into a backend.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/draftelo/internal/adapters/repository"
	"github.com/okian/draftelo/internal/domain/model"
	"github.com/okian/draftelo/pkg/logger"
)

// ErrInvalidRoster is returned for rosters that cannot be seeded.
var ErrInvalidRoster = errors.New("invalid roster")

// Player is one roster entry. Zero Rating means the default rating.
type Player struct {
	Name     string  `koanf:"name"`
	Rating   float64 `koanf:"rating"`
	Position string  `koanf:"position"`
	Team     string  `koanf:"team"`
	ImageURL string  `koanf:"image_url"`
}

// Value is one value table entry.
type Value struct {
	Name  string  `koanf:"name"`
	Value float64 `koanf:"value"`
}

// Roster is the seed document.
type Roster struct {
	Players []Player `koanf:"players"`
	Values  []Value  `koanf:"values"`
}

// Result counts appended rows.
type Result struct {
	PlayersAdded int
	ValuesAdded  int
}

// Load reads a roster from a YAML file.
func Load(path string) (*Roster, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load roster %s: %w", path, err)
	}
	var r Roster
	if err := k.UnmarshalWithConf("", &r, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode roster %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate rejects blank and duplicate player names.
func (r *Roster) Validate() error {
	seen := make(map[string]bool, len(r.Players))
	for i, p := range r.Players {
		key := model.Key(p.Name)
		if key == "" {
			return fmt.Errorf("%w: player %d has no name", ErrInvalidRoster, i)
		}
		if seen[key] {
			return fmt.Errorf("%w: duplicate player %q", ErrInvalidRoster, p.Name)
		}
		seen[key] = true
	}
	for i, v := range r.Values {
		if model.Key(v.Name) == "" {
			return fmt.Errorf("%w: value %d has no name", ErrInvalidRoster, i)
		}
	}
	return nil
}

// Seeder writes rosters into a backend.
type Seeder struct {
	backend       *repository.Backend
	defaultRating float64
	log           logger.Logger
}

// Option applies a configuration option to the Seeder.
type Option func(*Seeder)

// WithDefaultRating sets the rating written for players without one.
func WithDefaultRating(r float64) Option {
	return func(s *Seeder) {
		if r > 0 {
			s.defaultRating = r
		}
	}
}

// WithLogger sets the seeder logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Seeder) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Seeder for backend.
func New(backend *repository.Backend, opts ...Option) *Seeder {
	s := &Seeder{
		backend:       backend,
		defaultRating: model.DefaultRating,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply writes headers into empty sheets and appends roster rows whose
// names are not present yet. Existing rows are never modified, so Apply
// can be run repeatedly.
func (s *Seeder) Apply(ctx context.Context, r *Roster) (Result, error) {
	var res Result
	if err := s.backend.UsersSheet.EnsureHeader(ctx, repository.UsersHeader); err != nil {
		return res, fmt.Errorf("users header: %w", err)
	}

	players := make([]map[string]string, 0, len(r.Players))
	for _, p := range r.Players {
		rating := p.Rating
		if rating <= 0 {
			rating = s.defaultRating
		}
		players = append(players, map[string]string{
			repository.ColName:     strings.TrimSpace(p.Name),
			repository.ColElo:      strconv.FormatFloat(rating, 'f', -1, 64),
			repository.ColPosition: p.Position,
			repository.ColVotes:    "0",
			repository.ColTeam:     p.Team,
			repository.ColImageURL: p.ImageURL,
		})
	}
	n, err := s.appendMissing(ctx, s.backend.PlayersSheet, repository.PlayersHeader, players)
	res.PlayersAdded = n
	if err != nil {
		return res, err
	}

	values := make([]map[string]string, 0, len(r.Values))
	for _, v := range r.Values {
		values = append(values, map[string]string{
			repository.ColName:  strings.TrimSpace(v.Name),
			repository.ColValue: strconv.FormatFloat(v.Value, 'f', -1, 64),
		})
	}
	n, err = s.appendMissing(ctx, s.backend.ValuesSheet, repository.ValuesHeader, values)
	res.ValuesAdded = n
	if err != nil {
		return res, err
	}

	s.log.Info(ctx, "roster seeded",
		logger.Int("players_added", res.PlayersAdded),
		logger.Int("values_added", res.ValuesAdded),
	)
	return res, nil
}

func (s *Seeder) appendMissing(ctx context.Context, sheet repository.Sheet, header []string, rows []map[string]string) (int, error) {
	if err := sheet.EnsureHeader(ctx, header); err != nil {
		return 0, fmt.Errorf("%s header: %w", sheet.Name(), err)
	}
	current, existing, err := sheet.Records(ctx)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", sheet.Name(), err)
	}

	nameCol := -1
	for i, h := range current {
		if strings.EqualFold(strings.TrimSpace(h), repository.ColName) {
			nameCol = i
			break
		}
	}
	if nameCol < 0 {
		return 0, fmt.Errorf("%w: %s has no %s column", repository.ErrDataShape, sheet.Name(), repository.ColName)
	}

	present := make(map[string]bool, len(existing))
	for _, row := range existing {
		if nameCol < len(row) {
			present[model.Key(row[nameCol])] = true
		}
	}

	added := 0
	for _, values := range rows {
		key := model.Key(values[repository.ColName])
		if present[key] {
			continue
		}
		if err := sheet.Append(ctx, layout(current, values)); err != nil {
			return added, fmt.Errorf("append to %s: %w", sheet.Name(), err)
		}
		present[key] = true
		added++
	}
	return added, nil
}

// layout orders values by the sheet's actual header.
func layout(header []string, values map[string]string) []string {
	row := make([]string, len(header))
	for i, h := range header {
		for col, v := range values {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				row[i] = v
			}
		}
	}
	return row
}
