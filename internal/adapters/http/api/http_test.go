package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/draftelo/internal/adapters/http/api"
	"github.com/okian/draftelo/internal/adapters/repository"
	"github.com/okian/draftelo/internal/domain/types"
	"github.com/okian/draftelo/internal/session"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *mockDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeduper) Unrecord(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDeduper) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen))
}

type mockSessions struct {
	mockDeduper

	view     types.SessionView
	lb       types.Leaderboard
	err      error // returned by every call when set
	voteErr  error
	votes    []string
	closed   []string
	username string
}

func (m *mockSessions) CreateSession(_ context.Context, username string) (types.SessionView, error) {
	m.username = username
	if m.err != nil {
		return types.SessionView{}, m.err
	}
	return m.view, nil
}

func (m *mockSessions) Session(_ context.Context, id string) (types.SessionView, error) {
	if m.err != nil {
		return types.SessionView{}, m.err
	}
	return m.view, nil
}

func (m *mockSessions) Vote(_ context.Context, id, player string) (types.SessionView, error) {
	m.votes = append(m.votes, id+"/"+player)
	if m.voteErr != nil {
		return types.SessionView{}, m.voteErr
	}
	v := m.view
	v.State = "resolved"
	return v, nil
}

func (m *mockSessions) Next(_ context.Context, id string) (types.SessionView, error) {
	if m.err != nil {
		return types.SessionView{}, m.err
	}
	return m.view, nil
}

func (m *mockSessions) Refresh(_ context.Context, id string) (types.SessionView, error) {
	if m.err != nil {
		return types.SessionView{}, m.err
	}
	return m.view, nil
}

func (m *mockSessions) SessionLeaderboard(_ context.Context, id string) (types.Leaderboard, error) {
	if m.err != nil {
		return types.Leaderboard{}, m.err
	}
	return m.lb, nil
}

func (m *mockSessions) CloseSession(_ context.Context, id string) error {
	m.closed = append(m.closed, id)
	return m.err
}

func (m *mockSessions) Leaderboard(context.Context) (types.Leaderboard, error) {
	if m.err != nil {
		return types.Leaderboard{}, m.err
	}
	return m.lb, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockSessions) *http.ServeMux {
	mux := http.NewServeMux()
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}})
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func sampleView() types.SessionView {
	return types.SessionView{
		SessionID: "s1",
		Username:  "ari",
		State:     "awaiting_choice",
		Players: []types.PlayerView{
			{Name: "Josh Allen", Rating: 1500, Position: "QB", PositionRank: 1},
			{Name: "Jalen Hurts", Rating: 1500, Position: "QB", PositionRank: 1},
		},
		Recommended: "Josh Allen",
	}
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockSessions{view: sampleView()}
		mux := newMux(deps)

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint serves JSON", func() {
			w := do(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then unknown routes are not found", func() {
			w := do(mux, "GET", "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are rejected", func() {
			w := do(mux, "PUT", "/sessions/s1", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then registering on a nil mux panics", func() {
			server := api.NewServer(deps, &mockStatsProvider{})
			So(func() { server.Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestSessionRoutes(t *testing.T) {
	Convey("Given the session routes", t, func() {
		deps := &mockSessions{view: sampleView()}
		mux := newMux(deps)

		Convey("When creating a session", func() {
			w := do(mux, "POST", "/sessions", `{"username":"ari"}`)

			Convey("Then the view is returned with its location", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Header().Get("Location"), ShouldEqual, "/sessions/s1")
				var view types.SessionView
				So(json.Unmarshal(w.Body.Bytes(), &view), ShouldBeNil)
				So(view.Players[0].Name, ShouldEqual, "Josh Allen")
				So(view.Recommended, ShouldEqual, "Josh Allen")
				So(deps.username, ShouldEqual, "ari")
			})
		})

		Convey("When the body is malformed", func() {
			w := do(mux, "POST", "/sessions", `{"user":`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
			})
		})

		Convey("When the username is invalid", func() {
			deps.err = fmt.Errorf("%w: must not be empty", session.ErrInvalidUsername)
			w := do(mux, "POST", "/sessions", `{"username":""}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the session does not exist", func() {
			deps.err = fmt.Errorf("%w: nope", session.ErrSessionNotFound)

			Convey("Then every session route answers 404", func() {
				So(do(mux, "GET", "/sessions/nope", "").Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, "POST", "/sessions/nope/next", "").Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, "POST", "/sessions/nope/refresh", "").Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, "GET", "/sessions/nope/leaderboard", "").Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, "DELETE", "/sessions/nope", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When advancing a session that has not voted", func() {
			deps.err = fmt.Errorf("%w: advance in awaiting_choice", session.ErrInvalidState)
			w := do(mux, "POST", "/sessions/s1/next", "")

			Convey("Then it is a conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, `"code":"invalid_state"`)
			})
		})

		Convey("When the store fails during refresh", func() {
			deps.err = fmt.Errorf("load players: %w", repository.ErrRemote)
			w := do(mux, "POST", "/sessions/s1/refresh", "")

			Convey("Then it is a bad gateway", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
			})
		})

		Convey("When deleting a session", func() {
			w := do(mux, "DELETE", "/sessions/s1", "")

			Convey("Then it is closed", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(deps.closed, ShouldResemble, []string{"s1"})
			})
		})

		Convey("When reading the leaderboards", func() {
			deps.lb = types.Leaderboard{
				Total:  []types.UserEntry{{Rank: 1, Username: "ari", TotalVotes: 9, WeeklyVotes: 2}},
				Weekly: []types.UserEntry{{Rank: 1, Username: "ari", TotalVotes: 9, WeeklyVotes: 2}},
			}

			Convey("Then both routes return them", func() {
				for _, path := range []string{"/leaderboard", "/sessions/s1/leaderboard"} {
					w := do(mux, "GET", path, "")
					So(w.Code, ShouldEqual, http.StatusOK)
					var lb types.Leaderboard
					So(json.Unmarshal(w.Body.Bytes(), &lb), ShouldBeNil)
					So(lb.Total[0].TotalVotes, ShouldEqual, 9)
				}
			})
		})
	})
}

func TestVoteRoute(t *testing.T) {
	Convey("Given the vote route", t, func() {
		deps := &mockSessions{view: sampleView()}
		mux := newMux(deps)

		Convey("When voting without a player", func() {
			w := do(mux, "POST", "/sessions/s1/votes", `{"player":"  "}`)

			Convey("Then it is a bad request and nothing is voted", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.votes, ShouldBeEmpty)
			})
		})

		Convey("When voting with an unknown field", func() {
			w := do(mux, "POST", "/sessions/s1/votes", `{"player":"Josh Allen","weight":3}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When voting for a player outside the matchup", func() {
			deps.voteErr = fmt.Errorf("%w: %q", session.ErrInvalidChoice, "Tom Brady")
			w := do(mux, "POST", "/sessions/s1/votes", `{"player":"Tom Brady"}`, api.IdempotencyHeader, "k1")

			Convey("Then it is rejected and the key is released", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"code":"invalid_choice"`)
				So(deps.Size(), ShouldEqual, 0)
			})
		})

		Convey("When a vote is sent twice with the same key", func() {
			first := do(mux, "POST", "/sessions/s1/votes", `{"player":"Josh Allen"}`, api.IdempotencyHeader, "k2")
			second := do(mux, "POST", "/sessions/s1/votes", `{"player":"Josh Allen"}`, api.IdempotencyHeader, "k2")

			Convey("Then only the first is applied", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(first.Body.String(), ShouldContainSubstring, `"state":"resolved"`)
				So(second.Code, ShouldEqual, http.StatusConflict)
				So(second.Body.String(), ShouldContainSubstring, `"code":"duplicate"`)
				So(deps.votes, ShouldResemble, []string{"s1/Josh Allen"})
			})

			Convey("Then the same key on another session is independent", func() {
				other := do(mux, "POST", "/sessions/s2/votes", `{"player":"Josh Allen"}`, api.IdempotencyHeader, "k2")
				So(other.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the store fails while voting", func() {
			deps.voteErr = fmt.Errorf("record vote: %w", repository.ErrRemote)
			w := do(mux, "POST", "/sessions/s1/votes", `{"player":"Josh Allen"}`, api.IdempotencyHeader, "k3")

			Convey("Then it is a bad gateway and the key can be retried", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				deps.voteErr = nil
				retry := do(mux, "POST", "/sessions/s1/votes", `{"player":"Josh Allen"}`, api.IdempotencyHeader, "k3")
				So(retry.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When participation fails after the ratings were written", func() {
			deps.voteErr = fmt.Errorf("record participation: %w: %w", session.ErrPartialVote, repository.ErrRemote)
			w := do(mux, "POST", "/sessions/s1/votes", `{"player":"Josh Allen"}`, api.IdempotencyHeader, "k4")

			Convey("Then it is a bad gateway and a retry with the key is a duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				deps.voteErr = nil
				retry := do(mux, "POST", "/sessions/s1/votes", `{"player":"Josh Allen"}`, api.IdempotencyHeader, "k4")
				So(retry.Code, ShouldEqual, http.StatusConflict)
				So(deps.votes, ShouldResemble, []string{"s1/Josh Allen"})
			})
		})

		Convey("When votes carry no key", func() {
			do(mux, "POST", "/sessions/s1/votes", `{"player":"Josh Allen"}`)
			do(mux, "POST", "/sessions/s1/votes", `{"player":"Jalen Hurts"}`)

			Convey("Then both reach the service", func() {
				So(len(deps.votes), ShouldEqual, 2)
				So(deps.Size(), ShouldEqual, 0)
			})
		})
	})
}
