package engine

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/table-balancer/internal/seating"
)

type CommandType string

const (
	CmdInitialize   CommandType = "Initialize"
	CmdRelocate     CommandType = "Relocate"
	CmdSwap         CommandType = "Swap"
	CmdRemove       CommandType = "Remove"
	CmdSeatNew      CommandType = "SeatNew"
	CmdCreateTable  CommandType = "CreateTable"
	CmdBreakTable   CommandType = "BreakTable"
	CmdAutoBalance  CommandType = "AutoBalance"
	CmdAssignRoles  CommandType = "AssignRoles"
	CmdRotateRoles  CommandType = "RotateRoles"
	CmdSetAlgorithm CommandType = "SetAlgorithm"
	CmdUndo         CommandType = "Undo"
)

/*
	CmdInitialize   -> EvtLayoutUpdated
	CmdRelocate     -> EvtParticipantRelocated
	CmdRemove       -> EvtParticipantRelocated (no destination)
	CmdSwap         -> EvtLayoutUpdated (three relocations through a removed state)
	CmdSeatNew      -> EvtLayoutUpdated
	CmdCreateTable  -> EvtTableCreated
	CmdBreakTable   -> EvtTableBroken
	CmdAutoBalance  -> EvtBalanceCompleted, nothing when already balanced
	CmdAssignRoles  -> EvtLayoutUpdated
	CmdRotateRoles  -> EvtLayoutUpdated
	CmdSetAlgorithm -> EvtLayoutUpdated
	CmdUndo         -> EvtLayoutUpdated
*/

type Command struct {
	Type          CommandType
	Actor         string
	Reason        string
	ParticipantID string
	OtherID       string
	From          *seating.Location
	To            *seating.Location
	TableNumber   int
	Seat          int
	TableType     seating.TableType
	Algorithm     seating.AlgorithmSelection
	Participants  []seating.Participant
}

type EventType string

const (
	EvtLayoutUpdated        EventType = "layout-updated"
	EvtParticipantRelocated EventType = "participant-relocated"
	EvtTableBroken          EventType = "table-broken"
	EvtTableCreated         EventType = "table-created"
	EvtBalanceCompleted     EventType = "balance-completed"
	EvtError                EventType = "error"
)

type Event struct {
	Type           EventType         `json:"type"`
	At             time.Time         `json:"timestamp"`
	ParticipantID  string            `json:"participant_id,omitempty"`
	From           *seating.Location `json:"from,omitempty"`
	To             *seating.Location `json:"to,omitempty"`
	TableNumber    int               `json:"table_number,omitempty"`
	Table          *seating.Table    `json:"table,omitempty"`
	AffectedTables []int             `json:"affected_table_numbers,omitempty"`
	Message        string            `json:"message,omitempty"`
	FailedAction   string            `json:"failed_action,omitempty"`
}

// Env is everything outside the layout a command may read. Rules must be
// read fresh for every command.
type Env struct {
	EventID  string
	Rules    seating.Rules
	Eligible map[string]seating.Participant
	Rand     *rand.Rand
	Now      time.Time
}

// Result is a committed-ready layout and the one event describing it. Both
// are nil when the command changed nothing.
type Result struct {
	Layout *seating.Layout
	Event  *Event
}

// Apply runs cmd against a private copy of l. On error the copy is dropped
// and l is untouched, so multi-step commands never leave a partial write
// visible. The copy is checked against the layout invariants before it is
// returned.
func Apply(ctx context.Context, l *seating.Layout, env Env, cmd Command) (Result, error) {
	if cmd.Type == CmdInitialize {
		if l != nil {
			return Result{}, seating.Invalid(seating.ErrLayoutExists, "event %s", env.EventID)
		}
		l = seating.NewLayout(env.EventID, cmd.Algorithm, env.Now)
	} else if l == nil {
		return Result{}, seating.Invalid(seating.ErrNoLayout, "event %s", env.EventID)
	} else {
		l = l.Clone()
	}

	tx := &txn{ctx: ctx, l: l, env: env}
	ev, err := tx.dispatch(cmd)
	if err != nil {
		return Result{}, err
	}
	if ev == nil {
		return Result{}, nil
	}
	if tx.entry.Kind != "" {
		tx.entry.ID = uuid.NewString()
		tx.entry.Actor = cmd.Actor
		tx.entry.Reason = cmd.Reason
		tx.entry.At = env.Now
		l.History = append(l.History, tx.entry)
	}
	if err := Check(l); err != nil {
		return Result{}, err
	}
	l.UpdatedAt = env.Now
	ev.At = env.Now
	return Result{Layout: l, Event: ev}, nil
}

type txn struct {
	ctx   context.Context
	l     *seating.Layout
	env   Env
	entry seating.RebalanceEvent
}

func (tx *txn) dispatch(cmd Command) (*Event, error) {
	switch cmd.Type {
	case CmdInitialize:
		return tx.initialize(cmd.Participants)
	case CmdRelocate:
		return tx.move(cmd.ParticipantID, cmd.From, cmd.To)
	case CmdRemove:
		return tx.move(cmd.ParticipantID, cmd.From, nil)
	case CmdSwap:
		return tx.swap(cmd.ParticipantID, cmd.OtherID)
	case CmdSeatNew:
		return tx.seatNew(cmd.Participants)
	case CmdCreateTable:
		return tx.createTable(cmd.TableType)
	case CmdBreakTable:
		return tx.breakTable(cmd.TableNumber)
	case CmdAutoBalance:
		return tx.autoBalance()
	case CmdAssignRoles:
		return tx.assignRoles(cmd.TableNumber, cmd.Seat)
	case CmdRotateRoles:
		return tx.rotateRoles(cmd.TableNumber)
	case CmdSetAlgorithm:
		return tx.setAlgorithm(cmd.Algorithm)
	case CmdUndo:
		return tx.undo()
	default:
		return nil, seating.Invalid(ErrUnsupportedCommand, "%q", cmd.Type)
	}
}

func (tx *txn) begin(kind seating.ActionKind) { tx.entry.Kind = kind }

func layoutUpdated() *Event { return &Event{Type: EvtLayoutUpdated} }
