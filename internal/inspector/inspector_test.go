package inspector

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/config"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/event"
)

func newWorld(t *testing.T) *ecs.World {
	t.Helper()
	r, err := component.NewRegistry()
	require.NoError(t, err)
	return ecs.NewWorld(ecs.WithRegistry(r))
}

func TestApplyOps(t *testing.T) {
	w := newWorld(t)
	bus := event.NewBus()
	id := w.CreateEntity()
	require.NoError(t, ecs.Set(w, id, component.Name{Value: "hero"}))
	require.NoError(t, ecs.Set(w, id, component.Transform{}))
	other := w.CreateEntity()
	require.NoError(t, ecs.Set(w, other, component.Sprite{}))

	resp := Apply(w, bus, Request{ID: 1, Op: OpTypes})
	require.True(t, resp.OK)
	assert.NotEmpty(t, resp.Types)

	resp = Apply(w, bus, Request{ID: 2, Op: OpList, With: []string{"Transform"}})
	require.True(t, resp.OK)
	require.Len(t, resp.Entities, 1)
	assert.Equal(t, "hero", resp.Entities[0].Name)
	assert.Equal(t, []string{"Name", "Transform"}, resp.Entities[0].Components)

	resp = Apply(w, bus, Request{ID: 3, Op: OpSet, Entity: id.String(), Component: "Transform", Field: "position", Value: []any{4.0, 5.0}})
	require.True(t, resp.OK, resp.Error)
	tr, _ := ecs.Get[component.Transform](w, id)
	assert.Equal(t, component.Vec2{X: 4, Y: 5}, tr.Position)
	assert.Equal(t, 1, bus.Pending(), "edit announced")

	resp = Apply(w, bus, Request{ID: 4, Op: OpGet, Entity: id.String(), Component: "Transform"})
	require.True(t, resp.OK)
	assert.Equal(t, [2]float64{4, 5}, resp.Components["Transform"]["position"])
	assert.NotContains(t, resp.Components, "Name")

	resp = Apply(w, bus, Request{ID: 5, Op: OpDestroy, Entity: other.String()})
	require.True(t, resp.OK)
	assert.True(t, w.Doomed(other))
}

func TestApplyErrors(t *testing.T) {
	w := newWorld(t)
	id := w.CreateEntity()
	cases := []Request{
		{Op: "explode"},
		{Op: OpList, With: []string{"Nope"}},
		{Op: OpGet, Entity: "garbage"},
		{Op: OpGet, Entity: "99:1"},
		{Op: OpSet, Entity: id.String(), Component: "Nope", Field: "x"},
		{Op: OpSet, Entity: id.String(), Component: "Transform", Field: "nope"},
		{Op: OpSet, Entity: id.String(), Component: "Transform", Field: "rotation", Value: 1.0},
		{Op: OpDestroy, Entity: "99:1"},
	}
	for _, req := range cases {
		resp := Apply(w, nil, req)
		assert.False(t, resp.OK, "%+v", req)
		assert.NotEmpty(t, resp.Error)
	}
}

func TestDrainLimit(t *testing.T) {
	w := newWorld(t)
	s := NewServer(config.InspectorConfig{ReplyTimeout: 5 * time.Second}, zap.NewNop())
	for i := 0; i < 3; i++ {
		go s.Submit(context.Background(), Request{ID: uint64(i), Op: OpTypes})
	}
	require.Eventually(t, func() bool { return len(s.cmds) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, s.Drain(w, nil, 2))
	assert.Equal(t, 1, s.Drain(w, nil, 2))
	assert.Equal(t, 0, s.Drain(w, nil, 2))
}

func TestSubmitTimesOut(t *testing.T) {
	s := NewServer(config.InspectorConfig{ReplyTimeout: 20 * time.Millisecond}, zap.NewNop())
	resp := s.Submit(context.Background(), Request{ID: 9, Op: OpTypes})
	assert.False(t, resp.OK)
	assert.Equal(t, uint64(9), resp.ID)
}

func TestTimedOutRequestIsNeverApplied(t *testing.T) {
	w := newWorld(t)
	id := w.CreateEntity()
	s := NewServer(config.InspectorConfig{ReplyTimeout: 20 * time.Millisecond}, zap.NewNop())

	resp := s.Submit(context.Background(), Request{ID: 1, Op: OpDestroy, Entity: id.String()})
	require.False(t, resp.OK)
	assert.Contains(t, resp.Error, context.DeadlineExceeded.Error())

	assert.Equal(t, 0, s.Drain(w, nil, 8), "abandoned request is dropped")
	assert.False(t, w.Doomed(id))
	assert.Empty(t, s.cmds)
}

func basicAuth(pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte("editor:"+pass))
}

func TestAuthorized(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	s := NewServer(config.InspectorConfig{PasswordHash: string(hash)}, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.False(t, s.Authorized(r))
	r.Header.Set("Authorization", basicAuth("wrong"))
	assert.False(t, s.Authorized(r))
	r.Header.Set("Authorization", basicAuth("secret"))
	assert.True(t, s.Authorized(r))

	open := NewServer(config.InspectorConfig{}, zap.NewNop())
	assert.True(t, open.Authorized(httptest.NewRequest(http.MethodGet, "/ws", nil)))

	rec := httptest.NewRecorder()
	s.handleWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebsocketRoundTrip(t *testing.T) {
	w := newWorld(t)
	id := w.CreateEntity()
	require.NoError(t, ecs.Set(w, id, component.Name{Value: "hero"}))

	s := NewServer(config.InspectorConfig{ReplyTimeout: 5 * time.Second}, zap.NewNop())
	ts := httptest.NewServer(http.HandlerFunc(s.handleWS))
	defer ts.Close()

	// Stand-in for the game loop.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case cmd := <-s.cmds:
				cmd.reply <- Apply(w, nil, cmd.req)
			}
		}
	}()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Request{ID: 7, Op: OpGet, Entity: id.String()}))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	assert.True(t, resp.OK)
	assert.Equal(t, uint64(7), resp.ID)
	assert.Equal(t, "hero", resp.Components["Name"]["value"])
}
