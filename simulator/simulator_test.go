package simulator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/simonsays/api"
	"github.com/wricardo/simonsays/game/config"
	"github.com/wricardo/simonsays/game/engine"
	"github.com/wricardo/simonsays/game/registry"
	"github.com/wricardo/simonsays/game/service"
	"github.com/wricardo/simonsays/game/timer"
	"github.com/wricardo/simonsays/transport/websocket"
)

type testServer struct {
	url    string
	orch   *service.Orchestrator
	boards *registry.Registry
}

func startServer(t *testing.T) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	sched := timer.NewScheduler()
	sess := engine.NewSession(sched,
		engine.WithTurnTimeout(5*time.Second),
		engine.WithLogger(zerolog.Nop()),
	)
	boards := registry.New(config.DefaultBoards())

	hub := websocket.NewHub(websocket.WithLogger(zerolog.Nop()))
	go hub.Run(ctx)

	orch := service.NewOrchestrator(sess, boards, sched, hub,
		service.WithPacing(service.Pacing{
			PreShow:    5 * time.Millisecond,
			Step:       5 * time.Millisecond,
			LevelPause: 10 * time.Millisecond,
		}),
		service.WithLogger(zerolog.Nop()),
	)
	hub.SetRoster(orch.Roster)
	hub.SetStartHandler(func(ctx context.Context) error {
		_, err := orch.StartGame(ctx)
		return err
	})

	srv := httptest.NewServer(api.NewServer(orch, hub, api.WithLogger(zerolog.Nop())))
	t.Cleanup(func() {
		srv.Close()
		orch.Close()
		cancel()
	})

	return &testServer{url: srv.URL, orch: orch, boards: boards}
}

func TestPress(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.url+"/", WithLogger(zerolog.Nop()))
	assert.Equal(t, ts.url, client.BaseURL())

	hit, err := client.Press(context.Background(), "9072791", 12.5)
	require.NoError(t, err)
	assert.Equal(t, "success", hit.Status)
	assert.False(t, hit.Ignored())
	assert.True(t, ts.boards.IsConnected("9072791"))

	hit, err = client.Press(context.Background(), "1234", 0)
	require.NoError(t, err)
	assert.True(t, hit.Ignored())
}

func TestPressRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":"error","message":"Request must be JSON"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Press(context.Background(), "9072791", 0)
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "Request must be JSON")
}

func TestConnect(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.url, WithLogger(zerolog.Nop()))

	require.NoError(t, client.Connect(context.Background(), []string{"9072791", "9132300", "42"}))
	assert.Equal(t, []string{"9072791", "9132300"}, ts.boards.ConnectedIDs())
}

func TestAutoplay(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.url, WithLogger(zerolog.Nop()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids := make([]string, 0, 4)
	for id := range config.DefaultBoards() {
		ids = append(ids, id)
	}
	require.NoError(t, client.Connect(ctx, ids))

	var (
		flashes  int
		complete int
		roster   map[string]string
	)
	result, err := client.Autoplay(ctx, AutoplayOptions{
		Start:    true,
		MaxLevel: 3,
		OnEvent: func(ev Event) {
			switch {
			case ev.Name == "update_boards" && roster == nil:
				roster = ev.Roster
			case ev.Name == "show_flash":
				flashes++
			case ev.Status == "LEVEL_COMPLETE":
				complete++
			}
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Level)
	assert.Equal(t, "wrong_input", result.Reason)
	assert.Equal(t, 2, complete)
	// Levels 1, 2 and 3 were each shown in full.
	assert.Equal(t, 1+2+3, flashes)
	assert.Len(t, roster, 4)
}

func TestAutoplayCancelled(t *testing.T) {
	ts := startServer(t)
	client := NewClient(ts.url, WithLogger(zerolog.Nop()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Autoplay(ctx, AutoplayOptions{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOtherBoard(t *testing.T) {
	id, ok := otherBoard(map[string]string{"1": "red", "2": "green", "3": "blue"}, "1")
	assert.True(t, ok)
	assert.Equal(t, "2", id)

	_, ok = otherBoard(map[string]string{"1": "red"}, "1")
	assert.False(t, ok)
}
