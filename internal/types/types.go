package types

import (
	"errors"

	"github.com/DoyleJ11/table-balancer/internal/engine"
	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

// Client -> server message types.
const (
	MsgJoinLayout   = "join-layout"
	MsgInitialize   = "initialize"
	MsgRelocate     = "relocate"
	MsgSwap         = "swap"
	MsgRemove       = "remove"
	MsgSeatNew      = "seat-new"
	MsgAutoBalance  = "auto-balance"
	MsgBreakTable   = "break-table"
	MsgCreateTable  = "create-table"
	MsgAssignRoles  = "assign-roles"
	MsgRotateRoles  = "rotate-roles"
	MsgSetAlgorithm = "set-algorithm"
	MsgSetRules     = "set-rules"
	MsgUndo         = "undo"
)

// Server -> client message types besides the engine event names.
const (
	MsgSnapshot = "snapshot"
	MsgError    = "error"
	MsgRules    = "rules"
)

// KindTimeout marks an error reply sent while the command may still commit.
const KindTimeout = "timeout"

var (
	ErrUnknownType        = errors.New("unknown message type")
	ErrMissingDestination = errors.New("relocation without destination")
)

type ClientMessage struct {
	Type          string                `json:"type"`
	Seq           int64                 `json:"seq,omitempty"`
	Actor         string                `json:"actor,omitempty"`
	Reason        string                `json:"reason,omitempty"`
	ParticipantID string                `json:"participant_id,omitempty"`
	OtherID       string                `json:"other_id,omitempty"`
	From          *seating.Location     `json:"from,omitempty"`
	To            *seating.Location     `json:"to,omitempty"`
	TableNumber   int                   `json:"table_number,omitempty"`
	LeadSeat      int                   `json:"lead_seat,omitempty"`
	TableType     seating.TableType     `json:"table_type,omitempty"`
	Algorithm     seating.Algorithm     `json:"algorithm,omitempty"`
	Params        map[string]any        `json:"params,omitempty"`
	Rules         []seating.Rule        `json:"rules,omitempty"`
	Participants  []seating.Participant `json:"participants,omitempty"`
}

type ServerMessage struct {
	Type         string          `json:"type"`
	Version      int64           `json:"version,omitempty"`
	Origin       string          `json:"origin,omitempty"`
	ClientSeq    int64           `json:"client_seq,omitempty"`
	Event        *engine.Event   `json:"event,omitempty"`
	Layout       *seating.Layout `json:"layout,omitempty"`
	Rules        *seating.Rules  `json:"rules,omitempty"`
	Kind         string          `json:"kind,omitempty"`
	Message      string          `json:"message,omitempty"`
	FailedAction string          `json:"failed_action,omitempty"`
	Current      *seating.Seat   `json:"current,omitempty"`

	Eligible []seating.Participant `json:"eligible,omitempty"`
}

// ToCommand maps a client message onto the engine command it asks for.
// join-layout and set-rules are not layout commands and are rejected here.
func ToCommand(m ClientMessage) (engine.Command, error) {
	cmd := engine.Command{Actor: m.Actor, Reason: m.Reason}
	switch m.Type {
	case MsgInitialize:
		cmd.Type = engine.CmdInitialize
		cmd.Participants = m.Participants
		cmd.Algorithm = seating.AlgorithmSelection{Name: m.Algorithm, Params: m.Params}
	case MsgRelocate:
		cmd.Type = engine.CmdRelocate
		cmd.ParticipantID, cmd.From, cmd.To = m.ParticipantID, m.From, m.To
		if m.To == nil {
			return engine.Command{}, seating.Invalid(ErrMissingDestination, "%s", m.ParticipantID)
		}
	case MsgSwap:
		cmd.Type = engine.CmdSwap
		cmd.ParticipantID, cmd.OtherID = m.ParticipantID, m.OtherID
	case MsgRemove:
		cmd.Type = engine.CmdRemove
		cmd.ParticipantID, cmd.From = m.ParticipantID, m.From
	case MsgSeatNew:
		cmd.Type = engine.CmdSeatNew
		cmd.Participants = m.Participants
	case MsgAutoBalance:
		cmd.Type = engine.CmdAutoBalance
	case MsgBreakTable:
		cmd.Type = engine.CmdBreakTable
		cmd.TableNumber = m.TableNumber
	case MsgCreateTable:
		cmd.Type = engine.CmdCreateTable
		cmd.TableType = m.TableType
	case MsgAssignRoles:
		cmd.Type = engine.CmdAssignRoles
		cmd.TableNumber, cmd.Seat = m.TableNumber, m.LeadSeat
	case MsgRotateRoles:
		cmd.Type = engine.CmdRotateRoles
		cmd.TableNumber = m.TableNumber
	case MsgSetAlgorithm:
		cmd.Type = engine.CmdSetAlgorithm
		cmd.Algorithm = seating.AlgorithmSelection{Name: m.Algorithm, Params: m.Params}
	case MsgUndo:
		cmd.Type = engine.CmdUndo
	default:
		return engine.Command{}, seating.Invalid(ErrUnknownType, "%q", m.Type)
	}
	return cmd, nil
}

// FromSnapshot is the broadcast for one committed version. A snapshot
// without an event is the catch-up copy sent on join.
func FromSnapshot(s orchestrator.Snapshot) ServerMessage {
	msg := ServerMessage{
		Type:      MsgSnapshot,
		Version:   s.Version,
		Origin:    s.Origin,
		ClientSeq: s.ClientSeq,
		Event:     s.Event,
		Layout:    s.Layout,
		Eligible:  s.Eligible,
	}
	if s.Event != nil {
		msg.Type = string(s.Event.Type)
	}
	return msg
}

// ErrorMessage describes a rejected request for the client that sent it.
// Conflicts carry the seat as the server sees it. Transports that know the
// request's seq set ClientSeq so the client can match the rejection.
func ErrorMessage(err error, failedAction string) ServerMessage {
	msg := ServerMessage{
		Type:         MsgError,
		Kind:         seating.Kind(err),
		Message:      err.Error(),
		FailedAction: failedAction,
	}
	var conflict *seating.StateConflictError
	if errors.As(err, &conflict) {
		cur := conflict.Current
		msg.Current = &cur
	}
	return msg
}
