package session

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/okian/draftelo/internal/domain/model"
	"github.com/okian/draftelo/internal/domain/ranking"
	"github.com/okian/draftelo/pkg/metrics"
)

// CacheState tracks one cached dataset.
type CacheState int

// Cache states. Empty and Stale are populated on next access; Populated is
// served without remote calls.
const (
	CacheEmpty CacheState = iota
	CachePopulated
	CacheStale
)

func (s CacheState) String() string {
	switch s {
	case CacheEmpty:
		return "empty"
	case CachePopulated:
		return "populated"
	case CacheStale:
		return "stale"
	default:
		return fmt.Sprintf("CacheState(%d)", int(s))
	}
}

// Cache is a session-owned snapshot of players, users and values.
// Getters return copies.
type Cache struct {
	players PlayerStore
	users   UserLedger
	values  ValueTable

	mu          sync.Mutex
	playerState CacheState
	userState   CacheState
	valueState  CacheState
	playerData  []model.Player
	userData    []model.User
	valueData   map[string]float64
}

// NewCache creates an empty cache. values may be nil.
func NewCache(players PlayerStore, users UserLedger, values ValueTable) *Cache {
	return &Cache{players: players, users: users, values: values}
}

// State returns the players and users dataset states.
func (c *Cache) State() (players, users CacheState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerState, c.userState
}

// Players returns the cached players, reading the store when the dataset is
// not populated.
func (c *Cache) Players(ctx context.Context) ([]model.Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playerState != CachePopulated {
		if err := c.loadPlayers(ctx); err != nil {
			return nil, err
		}
	} else {
		metrics.RecordCacheEvent("players", "hit")
	}
	return append([]model.Player(nil), c.playerData...), nil
}

// Player returns the cached player with the given name, if loaded.
func (c *Cache) Player(name string) (model.Player, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := model.Key(name)
	for _, p := range c.playerData {
		if p.Key() == key {
			return p, true
		}
	}
	return model.Player{}, false
}

// Users returns the cached users, reading the ledger on first use.
func (c *Cache) Users(ctx context.Context) ([]model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.userState != CachePopulated {
		if err := c.loadUsers(ctx); err != nil {
			return nil, err
		}
	} else {
		metrics.RecordCacheEvent("users", "hit")
	}
	return append([]model.User(nil), c.userData...), nil
}

// Values returns the value table. Failures are not cached so a later call
// retries.
func (c *Cache) Values(ctx context.Context) (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.values == nil {
		return nil, nil
	}
	if c.valueState != CachePopulated {
		v, err := c.values.ReadAll(ctx)
		if err != nil {
			return nil, err
		}
		c.valueData, c.valueState = v, CachePopulated
		metrics.RecordCacheEvent("values", "populate")
	}
	return maps.Clone(c.valueData), nil
}

// Invalidate marks populated datasets stale.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playerState == CachePopulated {
		c.playerState = CacheStale
	}
	if c.userState == CachePopulated {
		c.userState = CacheStale
	}
	if c.valueState == CachePopulated {
		c.valueState = CacheStale
	}
	metrics.RecordCacheEvent("all", "invalidate")
}

// Refresh re-reads players and, if they were ever loaded, users. On error
// the previous snapshot is kept and marked stale.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadPlayers(ctx); err != nil {
		if c.playerState == CachePopulated {
			c.playerState = CacheStale
		}
		return err
	}
	if c.userState != CacheEmpty {
		if err := c.loadUsers(ctx); err != nil {
			c.userState = CacheStale
			return err
		}
	}
	if c.valueState == CachePopulated {
		c.valueState = CacheStale
	}
	return nil
}

func (c *Cache) loadPlayers(ctx context.Context) error {
	players, err := c.players.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("load players: %w", err)
	}
	c.playerData, c.playerState = players, CachePopulated
	metrics.RecordCacheEvent("players", "populate")
	return nil
}

func (c *Cache) loadUsers(ctx context.Context) error {
	users, err := c.users.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	c.userData, c.userState = users, CachePopulated
	metrics.RecordCacheEvent("users", "populate")
	return nil
}

// ApplyVote mirrors a committed vote into the cache so the next reads need
// no remote round trip. Datasets that are not populated are left alone.
func (c *Cache) ApplyVote(out model.VoteOutcome, username string, today time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playerState == CachePopulated {
		newRatings := map[string]float64{
			model.Key(out.Winner): out.WinnerRating,
			model.Key(out.Loser):  out.LoserRating,
		}
		for i := range c.playerData {
			p := &c.playerData[i]
			if r, ok := newRatings[p.Key()]; ok {
				p.Rating = r
				if p.HasVotes {
					p.Votes++
				}
			}
		}
		ranking.AssignPositionRanks(c.playerData)
		ranking.SortByRating(c.playerData)
	}

	if c.userState == CachePopulated {
		key := model.Key(username)
		found := false
		for i := range c.userData {
			u := &c.userData[i]
			if u.Username != key {
				continue
			}
			if model.WeeklyResetDue(u.LastVoted, today) {
				u.WeeklyVotes = 0
			}
			u.TotalVotes++
			u.WeeklyVotes++
			u.LastVoted = today
			found = true
			break
		}
		if !found {
			c.userData = append(c.userData, model.User{Username: key, TotalVotes: 1, WeeklyVotes: 1, LastVoted: today})
		}
	}
	metrics.RecordCacheEvent("all", "apply")
}
