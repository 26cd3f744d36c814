package session_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/draftelo/internal/domain/model"
)

var errRemote = errors.New("remote: quota exceeded")

type fakePlayers struct {
	mu       sync.Mutex
	players  []model.Player
	readErr  error
	applyErr error
	reads    int
	applies  int
	block    chan struct{} // when set, ApplyVote waits on it
	entered  chan struct{}
}

func newFakePlayers(players ...model.Player) *fakePlayers {
	return &fakePlayers{players: players}
}

func (f *fakePlayers) ReadAll(context.Context) ([]model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]model.Player(nil), f.players...), nil
}

func (f *fakePlayers) ApplyVote(_ context.Context, ratings map[string]float64, increments []string) error {
	f.mu.Lock()
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.applies++
	if f.applyErr != nil {
		return f.applyErr
	}
	for i := range f.players {
		if r, ok := ratings[f.players[i].Name]; ok {
			f.players[i].Rating = r
		}
	}
	for _, name := range increments {
		for i := range f.players {
			if f.players[i].Name == name {
				f.players[i].Votes++
			}
		}
	}
	return nil
}

func (f *fakePlayers) counts() (reads, applies int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.applies
}

type fakeLedger struct {
	mu           sync.Mutex
	users        []model.User
	today        time.Time
	touchErr     error
	voteErr      error
	readErr      error
	reads        int
	trackTouches int
	voteTouches  int
}

func (f *fakeLedger) ReadAll(context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]model.User(nil), f.users...), nil
}

func (f *fakeLedger) RecordTouch(_ context.Context, username string, countsAsVote bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	if countsAsVote {
		if f.voteErr != nil {
			return f.voteErr
		}
		f.voteTouches++
	} else {
		f.trackTouches++
	}
	key := model.Key(username)
	for i := range f.users {
		if f.users[i].Username == key {
			if countsAsVote {
				f.users[i].TotalVotes++
				f.users[i].WeeklyVotes++
			}
			f.users[i].LastVoted = f.today
			return nil
		}
	}
	n := 0
	if countsAsVote {
		n = 1
	}
	f.users = append(f.users, model.User{Username: key, TotalVotes: n, WeeklyVotes: n, LastVoted: f.today})
	return nil
}

func (f *fakeLedger) Today() time.Time { return f.today }

type fakeValues struct {
	values map[string]float64
	err    error
	reads  int
}

func (f *fakeValues) ReadAll(context.Context) (map[string]float64, error) {
	f.reads++
	return f.values, f.err
}

// Wednesday 2025-09-10.
var today = time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

func twoEqualPlayers() *fakePlayers {
	return newFakePlayers(
		model.Player{Name: "Josh Allen", Rating: 1500, Position: "QB", HasVotes: true},
		model.Player{Name: "Jalen Hurts", Rating: 1500, Position: "QB", HasVotes: true},
	)
}
