package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/minesweeper-agent/internal/agent"
	"github.com/vancomm/minesweeper-agent/internal/config"
	"github.com/vancomm/minesweeper-agent/internal/knowledge"
	"github.com/vancomm/minesweeper-agent/internal/mines"
	"github.com/vancomm/minesweeper-agent/internal/repository"
)

func TestMain(m *testing.M) {
	knowledge.Log.SetLevel(logrus.WarnLevel)
	m.Run()
}

type fakeRepo struct {
	mu      sync.Mutex
	runs    []repository.CreateRunParams
	filters []repository.StatsFilter
}

func (f *fakeRepo) CreateRun(ctx context.Context, p repository.CreateRunParams) (*repository.AgentRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, run := range f.runs {
		if run.Seed == p.Seed && run.Result.Params == p.Result.Params {
			return nil, repository.ErrDuplicateRun
		}
	}
	f.runs = append(f.runs, p)
	return f.stored(int64(len(f.runs))), nil
}

// stored must be called with f.mu held.
func (f *fakeRepo) stored(id int64) *repository.AgentRun {
	p := f.runs[id-1]
	return &repository.AgentRun{
		AgentRunId: id,
		Seed:       p.Seed,
		Width:      p.Result.Params.Width,
		Height:     p.Result.Params.Height,
		MineCount:  p.Result.Params.MineCount,
		Outcome:    p.Result.Outcome.String(),
		Moves:      p.Result.Moves,
		StartedAt:  p.StartedAt,
		EndedAt:    p.StartedAt.Add(p.Result.Elapsed),
	}
}

func (f *fakeRepo) FetchRun(ctx context.Context, id int64) (*repository.AgentRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id < 1 || int(id) > len(f.runs) {
		return nil, pgx.ErrNoRows
	}
	return f.stored(id), nil
}

func (f *fakeRepo) recorded() []repository.CreateRunParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.CreateRunParams(nil), f.runs...)
}

func (f *fakeRepo) GetStats(ctx context.Context, filter repository.StatsFilter) ([]repository.RunStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return []repository.RunStats{{Width: 8, Height: 8, MineCount: 8, Games: 2, Won: 1, Lost: 1, WinRate: 0.5}}, nil
}

var testLimits = config.Sessions{MaxCells: 400, MaxSessions: 100, TTL: time.Hour}

func newTestServer(t *testing.T, repo RunRepository) *httptest.Server {
	t.Helper()
	return newLimitedTestServer(t, repo, testLimits)
}

func newLimitedTestServer(t *testing.T, repo RunRepository, limits config.Sessions) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ws := &config.WebSocket{
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		MoveDelay: time.Millisecond,
	}
	h := NewAgentHandler(logger, repo, ws, mines.GameParams{Width: 8, Height: 8, MineCount: 8}, &limits)

	router := http.NewServeMux()
	router.HandleFunc("POST /session", h.NewSession)
	router.HandleFunc("GET /session/{id}", h.Fetch)
	router.HandleFunc("POST /session/{id}/step", h.Step)
	router.HandleFunc("POST /session/{id}/play", h.Play)
	router.HandleFunc("GET /session/{id}/connect", h.ConnectWS)
	router.HandleFunc("GET /stats", h.Stats)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestNewSession(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("defaults", func(t *testing.T) {
		var s SessionDTO
		code := do(t, http.MethodPost, srv.URL+"/session", &s)
		require.Equal(t, http.StatusCreated, code)

		assert.NotEmpty(t, s.SessionId)
		assert.Equal(t, mines.GameParams{Width: 8, Height: 8, MineCount: 8}, s.Params)
		assert.Equal(t, agent.Playing, s.Outcome)
		assert.Len(t, s.Grid, 64)
		assert.Empty(t, s.Moves)
	})

	t.Run("custom board", func(t *testing.T) {
		var s SessionDTO
		code := do(t, http.MethodPost, srv.URL+"/session?width=5&height=4&mine_count=3&seed=7", &s)
		require.Equal(t, http.StatusCreated, code)

		assert.Equal(t, mines.GameParams{Width: 5, Height: 4, MineCount: 3}, s.Params)
		assert.Equal(t, "7", s.Seed)
	})

	tests := []struct {
		name  string
		query string
	}{
		{"not a number", "?width=wide"},
		{"too many mines", "?width=3&height=3&mine_count=9"},
		{"empty board", "?width=0"},
		{"board over the limit", "?width=21&height=20&mine_count=0"},
		{"huge board", "?width=100000&height=100000&mine_count=0"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var body map[string]string
			code := do(t, http.MethodPost, srv.URL+"/session"+test.query, &body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/session/nope", "/session/nope/step", "/session/nope/play"} {
		method := http.MethodPost
		if path == "/session/nope" {
			method = http.MethodGet
		}
		assert.Equal(t, http.StatusNotFound, do(t, method, srv.URL+path, nil), path)
	}
}

func TestStepUntilFinished(t *testing.T) {
	repo := &fakeRepo{}
	srv := newTestServer(t, repo)

	var s SessionDTO
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session?width=4&height=4&mine_count=2&seed=3", &s))
	url := srv.URL + "/session/" + s.SessionId

	for i := 0; ; i++ {
		require.Less(t, i, 16, "agent did not finish")

		var res struct {
			Move    *agent.Move `json:"move"`
			Session SessionDTO  `json:"session"`
		}
		require.Equal(t, http.StatusOK, do(t, http.MethodPost, url+"/step", &res))
		require.NotNil(t, res.Move)
		assert.Len(t, res.Session.Moves, i+1)

		if res.Session.Outcome != agent.Playing {
			assert.Contains(t, []agent.Outcome{agent.Won, agent.Lost}, res.Session.Outcome)
			break
		}
	}

	assert.Equal(t, http.StatusConflict, do(t, http.MethodPost, url+"/step", nil))
	runs := repo.recorded()
	require.Len(t, runs, 1)
	assert.Equal(t, "3", runs[0].Seed)
}

func TestPlay(t *testing.T) {
	repo := &fakeRepo{}
	srv := newTestServer(t, repo)

	play := func() SessionDTO {
		var s SessionDTO
		require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session?seed=42", &s))
		require.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/session/"+s.SessionId+"/play", &s))
		return s
	}

	first := play()
	assert.Contains(t, []agent.Outcome{agent.Won, agent.Lost}, first.Outcome)
	assert.Equal(t, len(first.Moves), first.Result.Moves)
	assert.Positive(t, first.Result.Elapsed)
	require.NotNil(t, first.RunId)
	assert.Nil(t, first.Run)

	var fetched SessionDTO
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/session/"+first.SessionId, &fetched))
	require.NotNil(t, fetched.Run)
	assert.Equal(t, *first.RunId, fetched.Run.AgentRunId)
	assert.Equal(t, "42", fetched.Run.Seed)
	assert.Equal(t, first.Outcome.String(), fetched.Run.Outcome)
	assert.True(t, fetched.Run.EndedAt.After(fetched.Run.StartedAt))

	// same seed, same board, same game
	second := play()
	assert.Equal(t, first.Moves, second.Moves)
	assert.Equal(t, first.Grid, second.Grid)
	assert.Nil(t, second.RunId)
	assert.Len(t, repo.recorded(), 1)

	for _, c := range first.KnownMines {
		assert.Contains(t, []mines.CellState{mines.CorrectlyFlagged, mines.ExplodedMine, mines.UnflaggedMine},
			first.Grid[c.Row*first.Params.Width+c.Col], "%v", c)
	}

	assert.Equal(t, http.StatusConflict, do(t, http.MethodPost, srv.URL+"/session/"+first.SessionId+"/play", nil))
}

func TestStats(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		srv := newTestServer(t, nil)
		assert.Equal(t, http.StatusServiceUnavailable, do(t, http.MethodGet, srv.URL+"/stats", nil))
	})

	t.Run("filter", func(t *testing.T) {
		repo := &fakeRepo{}
		srv := newTestServer(t, repo)

		var stats []repository.RunStats
		require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/stats", &stats))
		require.Len(t, stats, 1)
		assert.Equal(t, 0.5, stats[0].WinRate)

		require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/stats?width=9&height=9&mine_count=10", &stats))
		repo.mu.Lock()
		filters := append([]repository.StatsFilter(nil), repo.filters...)
		repo.mu.Unlock()
		require.Len(t, filters, 2)
		assert.Nil(t, filters[0].GameParams)
		assert.Equal(t, &mines.GameParams{Width: 9, Height: 9, MineCount: 10}, filters[1].GameParams)

		assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/stats?width=x", nil))
	})
}

func TestConnectWS(t *testing.T) {
	repo := &fakeRepo{}
	srv := newTestServer(t, repo)

	var s SessionDTO
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session?width=5&height=5&mine_count=3&seed=11", &s))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/session/" + s.SessionId + "/connect"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()

	var moves []agent.Move
	for {
		var msg wsMessage
		require.NoError(t, c.ReadJSON(&msg))

		if msg.Type == "move" {
			require.NotNil(t, msg.Move)
			moves = append(moves, *msg.Move)
			continue
		}

		require.Equal(t, "result", msg.Type, msg.Error)
		require.NotNil(t, msg.Session)
		assert.NotEqual(t, agent.Playing, msg.Session.Outcome)
		assert.Equal(t, msg.Session.Moves, moves)
		break
	}

	_, _, err = c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	assert.Len(t, repo.recorded(), 1)
}

func TestConnectWSUnknown(t *testing.T) {
	srv := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/session/nope/connect"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSessionLimit(t *testing.T) {
	limits := testLimits
	limits.MaxSessions = 2
	srv := newLimitedTestServer(t, nil, limits)

	for range 2 {
		require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/session", nil))
	}

	var body map[string]string
	assert.Equal(t, http.StatusServiceUnavailable, do(t, http.MethodPost, srv.URL+"/session", &body))
	assert.Equal(t, ErrTooManySessions.Error(), body["error"])
}

func TestSessionsEvictIdle(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ss := NewSessions(time.Minute, 2)
	ss.now = func() time.Time { return now }

	newTestSession := func() *Session {
		s, err := newSession(mines.GameParams{Width: 3, Height: 3, MineCount: 1}, 1)
		require.NoError(t, err)
		return s
	}

	a, b := newTestSession(), newTestSession()
	require.NoError(t, ss.add(a))
	require.NoError(t, ss.add(b))
	assert.True(t, errors.Is(ss.add(newTestSession()), ErrTooManySessions))

	now = now.Add(45 * time.Second)
	_, ok := ss.get(a.id)
	require.True(t, ok)

	// b has been idle for longer than the ttl, a was looked up in between
	now = now.Add(30 * time.Second)
	c := newTestSession()
	require.NoError(t, ss.add(c))
	assert.Equal(t, 2, ss.Len())

	_, ok = ss.get(b.id)
	assert.False(t, ok)
	_, ok = ss.get(a.id)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = ss.get(c.id)
	assert.False(t, ok)
	assert.Zero(t, ss.Len())
}
