// Command seatwatch follows one event's layout over the websocket and logs
// every version it sees. JSON commands typed on stdin are applied to the
// local copy at once and sent to the server.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/table-balancer/internal/logging"
	"github.com/DoyleJ11/table-balancer/internal/replica"
	"github.com/DoyleJ11/table-balancer/internal/seating"
	"github.com/DoyleJ11/table-balancer/internal/types"
)

func main() {
	server := flag.String("server", "ws://localhost:8080/ws", "websocket endpoint")
	event := flag.String("event", "", "event id to follow")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	if err := run(*server, *event, *level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(server, event, level string) error {
	if event == "" {
		return fmt.Errorf("-event is required")
	}
	log, err := logging.New(level, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clientID := uuid.NewString()
	u, err := url.Parse(server)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("event", event)
	q.Set("client", clientID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	r := replica.New(clientID, seating.DefaultRules())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return follow(gctx, conn, r, log) })
	g.Go(func() error { return relayStdin(gctx, conn, r, log) })
	return g.Wait()
}

func follow(ctx context.Context, conn *websocket.Conn, r *replica.Replica, log *zap.Logger) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		var msg types.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("undecodable message", zap.Error(err))
			continue
		}
		r.Receive(ctx, msg)

		switch msg.Type {
		case types.MsgError:
			log.Warn("rejected", zap.String("action", msg.FailedAction), zap.String("kind", msg.Kind),
				zap.Int64("seq", msg.ClientSeq), zap.String("message", msg.Message))
		case types.MsgRules:
			log.Info("rules", zap.Any("rules", msg.Rules))
		default:
			log.Info("layout", zap.String("type", msg.Type), zap.Int64("version", msg.Version),
				zap.String("origin", msg.Origin), zap.Ints("occupancy", occupancy(r.View())), zap.Int("pending", r.Pending()))
		}
	}
}

// relayStdin reads one ClientMessage per line.
func relayStdin(ctx context.Context, conn *websocket.Conn, r *replica.Replica, log *zap.Logger) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				<-ctx.Done()
				return nil
			}
			if err := send(ctx, conn, r, line); err != nil {
				log.Warn("not sent", zap.Error(err))
			}
		}
	}
}

func send(ctx context.Context, conn *websocket.Conn, r *replica.Replica, line string) error {
	var cm types.ClientMessage
	if err := json.Unmarshal([]byte(line), &cm); err != nil {
		return err
	}
	switch cm.Type {
	case types.MsgJoinLayout, types.MsgSetRules:
	default:
		cmd, err := types.ToCommand(cm)
		if err != nil {
			return err
		}
		seq, err := r.Propose(ctx, cmd)
		if err != nil {
			return fmt.Errorf("rejected locally: %w", err)
		}
		cm.Seq = seq
	}
	data, err := json.Marshal(cm)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func occupancy(l *seating.Layout) []int {
	if l == nil {
		return nil
	}
	var out []int
	for _, t := range l.ActiveTables() {
		out = append(out, t.Occupied())
	}
	return out
}
