package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/table-balancer/internal/hub"
	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/seating"
	"github.com/DoyleJ11/table-balancer/internal/types"
)

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, event string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?event=" + event
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func recv(t *testing.T, ctx context.Context, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func sendMsg(t *testing.T, ctx context.Context, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestHandler_BroadcastsAndPrivateErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := hub.NewHub(ctx, nil)
	rules, err := seating.NewRuleBook(seating.DefaultRules())
	require.NoError(t, err)
	srv := httptest.NewServer(Handler(h, rules, nil))
	defer srv.Close()

	a := dial(t, ctx, srv, "evt")
	b := dial(t, ctx, srv, "evt")
	assert.Equal(t, types.MsgSnapshot, recv(t, ctx, a).Type)
	assert.Equal(t, types.MsgSnapshot, recv(t, ctx, b).Type)

	ps := make([]seating.Participant, 12)
	for i := range ps {
		ps[i] = seating.Participant{ID: fmt.Sprintf("p%02d", i)}
	}
	sendMsg(t, ctx, a, types.ClientMessage{Type: types.MsgInitialize, Seq: 1, Participants: ps})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := recv(t, ctx, conn)
		assert.Equal(t, "layout-updated", msg.Type)
		assert.Equal(t, int64(1), msg.Version)
		assert.Equal(t, int64(1), msg.ClientSeq)
		require.NotNil(t, msg.Layout)
		assert.Len(t, msg.Layout.Tables, 2)
		assert.Len(t, msg.Eligible, 12)
	}

	sendMsg(t, ctx, b, types.ClientMessage{Type: types.MsgBreakTable, Seq: 2, TableNumber: 42})
	msg := recv(t, ctx, b)
	assert.Equal(t, types.MsgError, msg.Type)
	assert.Equal(t, "validation", msg.Kind)
	assert.Equal(t, types.MsgBreakTable, msg.FailedAction)
	assert.Equal(t, int64(2), msg.ClientSeq)

	sendMsg(t, ctx, b, types.ClientMessage{Type: types.MsgSetRules, Rules: []seating.Rule{{Name: seating.RuleBalanceThreshold, Value: 2}}})
	msg = recv(t, ctx, b)
	require.Equal(t, types.MsgRules, msg.Type)
	assert.Equal(t, 2, msg.Rules.BalanceThreshold)

	// a saw neither the error nor the rules reply; its next frame is the
	// broadcast for the next commit
	sendMsg(t, ctx, a, types.ClientMessage{Type: types.MsgRotateRoles, Seq: 3, TableNumber: 1})
	msg = recv(t, ctx, a)
	assert.Equal(t, "layout-updated", msg.Type)
	assert.Equal(t, int64(2), msg.Version)
}

func TestHandler_RequiresEvent(t *testing.T) {
	h := hub.NewHub(context.Background(), nil)
	rules, _ := seating.NewRuleBook(seating.DefaultRules())
	srv := httptest.NewServer(Handler(h, rules, nil))
	defer srv.Close()

	_, resp, err := websocket.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestSend_StoppedEventDoesNotBlock(t *testing.T) {
	o := orchestrator.New(context.Background(), "evt", orchestrator.Options{})
	o.Inbox() <- orchestrator.Shutdown{}
	select {
	case <-o.Done():
	case <-time.After(time.Second):
		t.Fatal("actor did not stop")
	}

	inbox := o.Inbox()
	for len(inbox) < cap(inbox) {
		inbox <- orchestrator.Leave{ClientID: "filler"}
	}

	sent := make(chan bool, 2)
	go func() {
		sent <- send(context.Background(), o, orchestrator.FromClient{ClientID: "c1", Seq: 1})
		sent <- send(context.Background(), o, orchestrator.Leave{ClientID: "c1"})
	}()
	for i := 0; i < 2; i++ {
		select {
		case ok := <-sent:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("send blocked on a stopped event")
		}
	}
}
