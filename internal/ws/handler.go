package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/table-balancer/internal/hub"
	"github.com/DoyleJ11/table-balancer/internal/logging"
	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/seating"
	"github.com/DoyleJ11/table-balancer/internal/types"
)

const (
	outboxSize   = 16
	writeTimeout = 3 * time.Second
	readTimeout  = 60 * time.Second
	replyTimeout = 5 * time.Second
)

// Handler upgrades /ws?event=<id>[&client=<id>] and joins the connection to
// that event. Clients that keep an optimistic copy pass their own id so they
// can recognize the echoes of their commands.
// Broadcasts go to every client; errors only to the client that caused them.
func Handler(h *hub.Hub, rules *seating.RuleBook, log *zap.Logger) http.HandlerFunc {
	log = logging.OrNop(log)
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := r.URL.Query().Get("event")
		if eventID == "" {
			http.Error(w, "missing event", http.StatusBadRequest)
			return
		}

		o, err := h.Ensure(r.Context(), eventID)
		if err != nil || o == nil {
			http.Error(w, "event unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan orchestrator.Snapshot, outboxSize)
		clientID := r.URL.Query().Get("client")
		if clientID == "" {
			clientID = uuid.NewString()
		}
		clog := log.With(zap.String("event_id", eventID), zap.String("client_id", clientID))

		if !send(r.Context(), o, orchestrator.Join{ClientID: clientID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "event stopped")
			return
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
			defer cancel()
			send(ctx, o, orchestrator.Leave{ClientID: clientID})
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// dropped as too slow, or the event shut down
						conn.Close(websocket.StatusPolicyViolation, "outbox closed")
						return
					}
					if err := write(writeCtx, conn, types.FromSnapshot(snap)); err != nil {
						clog.Debug("write failed", zap.Error(err))
					}
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Kind: "validation", Message: "bad json"})
				continue
			}

			switch cm.Type {
			case types.MsgJoinLayout:
				if snap := o.Latest(); snap != nil {
					_ = write(r.Context(), conn, types.FromSnapshot(*snap))
				}
				continue
			case types.MsgSetRules:
				current, err := rules.Update(cm.Rules...)
				if err != nil {
					_ = write(r.Context(), conn, reject(err, cm))
					continue
				}
				_ = write(r.Context(), conn, types.ServerMessage{Type: types.MsgRules, Rules: &current})
				continue
			}

			cmd, err := types.ToCommand(cm)
			if err != nil {
				_ = write(r.Context(), conn, reject(err, cm))
				continue
			}
			if cmd.Actor == "" {
				cmd.Actor = clientID
			}

			reply := make(chan orchestrator.Outcome, 1)
			if !send(r.Context(), o, orchestrator.FromClient{ClientID: clientID, Seq: cm.Seq, Cmd: cmd, Reply: reply}) {
				return
			}
			select {
			case res := <-reply:
				if res.Err != nil {
					_ = write(r.Context(), conn, reject(res.Err, cm))
				}
			case <-time.After(replyTimeout):
				_ = write(r.Context(), conn, types.ServerMessage{
					Type:         types.MsgError,
					Kind:         types.KindTimeout,
					Message:      "timed out",
					FailedAction: cm.Type,
					ClientSeq:    cm.Seq,
				})
			case <-o.Done():
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}

// send hands m to the event's actor. It gives up once the actor has stopped
// or ctx is done, so a removed event cannot wedge the connection.
func send(ctx context.Context, o *orchestrator.Orchestrator, m orchestrator.Msg) bool {
	select {
	case o.Inbox() <- m:
		return true
	case <-o.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

func reject(err error, cm types.ClientMessage) types.ServerMessage {
	msg := types.ErrorMessage(err, cm.Type)
	msg.ClientSeq = cm.Seq
	return msg
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
