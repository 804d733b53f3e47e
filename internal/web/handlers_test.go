package web

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jaminalder/atetria/internal/app"
	"github.com/jaminalder/atetria/internal/config"
	"github.com/jaminalder/atetria/internal/domain"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	cfg := config.Default().Game
	cfg.TickInterval = 0
	cfg.Randomizer = config.RandomizerFixed
	cfg.FixedPiece = "O"
	cfg.Debug = true
	logger := zaptest.NewLogger(t)
	s := app.NewService(cfg, logger)
	t.Cleanup(s.Close)
	return s, NewServer(s, logger)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeSnapshot(t *testing.T, body []byte) app.Snapshot {
	t.Helper()
	var snap app.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	return snap
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	rr := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestCreateAndView(t *testing.T) {
	svc, h := newTestServer(t)
	rr := do(t, h, http.MethodPost, "/games", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	snap := decodeSnapshot(t, rr.Body.Bytes())
	assert.Equal(t, "/games/"+snap.ID, rr.Header().Get("Location"))
	assert.Equal(t, "not_started", snap.State)
	assert.Len(t, snap.Rows, 20)

	_, ok := svc.Get(snap.ID)
	require.True(t, ok)

	rr = do(t, h, http.MethodGet, "/games/"+snap.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, snap.ID, decodeSnapshot(t, rr.Body.Bytes()).ID)

	rr = do(t, h, http.MethodGet, "/games/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCommandEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	path := "/games/" + gs.ID + "/commands"

	rr := do(t, h, http.MethodPost, path, `{"command":"left"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	snap := decodeSnapshot(t, rr.Body.Bytes())
	assert.Equal(t, 1, snap.Score)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "O", snap.Current.Type)
	assert.Equal(t, 3, snap.Current.X)
	assert.Equal(t, 18, snap.Current.Y)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown command", path, `{"command":"jump"}`, http.StatusBadRequest},
		{"bad json", path, `{"command":`, http.StatusBadRequest},
		{"unknown game", "/games/missing/commands", `{"command":"left"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code)
			var e errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestCommandAfterGameOverConflicts(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	path := "/games/" + gs.ID + "/commands"

	var snap app.Snapshot
	for i := 0; i < 100 && snap.State != "over"; i++ {
		rr := do(t, h, http.MethodPost, path, `{"command":"drop"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		rr = do(t, h, http.MethodPost, path, `{"command":"down"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		rr = do(t, h, http.MethodPost, path, `{"command":"down"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		snap = decodeSnapshot(t, rr.Body.Bytes())
	}
	require.Equal(t, "over", snap.State)

	rr := do(t, h, http.MethodPost, path, `{"command":"left"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()

	rr := do(t, h, http.MethodDelete, "/games/"+gs.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	_, ok := svc.Get(gs.ID)
	assert.False(t, ok)

	rr = do(t, h, http.MethodDelete, "/games/"+gs.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()

	rr := do(t, h, http.MethodGet, "/games/"+gs.ID+"/events", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/event-stream"))

	rr = do(t, h, http.MethodGet, "/games/missing/events", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// readEvent reads one "event:/data:" block from an SSE stream.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && event != "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStream(t *testing.T) {
	svc, h := newTestServer(t)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	gs, _ := svc.CreateGame()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/games/"+gs.ID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)

	event, data := readEvent(t, r)
	assert.Equal(t, "board", event)
	assert.Equal(t, "not_started", decodeSnapshot(t, []byte(data)).State)

	_, err = svc.Command(gs.ID, domain.MoveLeft)
	require.NoError(t, err)
	event, data = readEvent(t, r)
	assert.Equal(t, "board", event)
	assert.Equal(t, 1, decodeSnapshot(t, []byte(data)).Score)
}

func TestWebSocketPlaysCommands(t *testing.T) {
	svc, h := newTestServer(t)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	gs, _ := svc.CreateGame()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/games/" + gs.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "board", f.Type)
	assert.Equal(t, "not_started", decodeSnapshot(t, f.Data).State)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("right")))
	f = frame{}
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "board", f.Type)
	snap := decodeSnapshot(t, f.Data)
	assert.Equal(t, 5, snap.Current.X)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("jump")))
	f = frame{}
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "error", f.Type)
	assert.Contains(t, f.Error, "unknown command")

	require.NoError(t, svc.Delete(gs.ID))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "deleting the game closes the socket")
}

func TestWebSocketUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/games/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
