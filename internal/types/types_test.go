package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/table-balancer/internal/engine"
	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

func TestToCommand(t *testing.T) {
	cases := []struct {
		name string
		msg  ClientMessage
		want engine.Command
	}{
		{
			name: "relocate",
			msg:  ClientMessage{Type: MsgRelocate, ParticipantID: "p1", To: &seating.Location{TableNumber: 2, Seat: 4}},
			want: engine.Command{Type: engine.CmdRelocate, ParticipantID: "p1", To: &seating.Location{TableNumber: 2, Seat: 4}},
		},
		{
			name: "assign roles",
			msg:  ClientMessage{Type: MsgAssignRoles, TableNumber: 3, LeadSeat: 5},
			want: engine.Command{Type: engine.CmdAssignRoles, TableNumber: 3, Seat: 5},
		},
		{
			name: "set algorithm",
			msg:  ClientMessage{Type: MsgSetAlgorithm, Algorithm: seating.AlgorithmSnake},
			want: engine.Command{Type: engine.CmdSetAlgorithm, Algorithm: seating.AlgorithmSelection{Name: seating.AlgorithmSnake}},
		},
		{
			name: "break",
			msg:  ClientMessage{Type: MsgBreakTable, TableNumber: 1, Actor: "td"},
			want: engine.Command{Type: engine.CmdBreakTable, TableNumber: 1, Actor: "td"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToCommand(tc.msg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ToCommand(ClientMessage{Type: MsgSetRules})
	require.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, "validation", seating.Kind(err))
	_, err = ToCommand(ClientMessage{Type: MsgRelocate, ParticipantID: "p1"})
	require.ErrorIs(t, err, ErrMissingDestination)
}

func TestClientMessage_DecodesWireNames(t *testing.T) {
	var m ClientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"relocate","seq":3,"participant_id":"p1","from":{"table_number":1,"seat":2},"to":{"table_number":2,"seat":7}}`), &m))
	assert.Equal(t, int64(3), m.Seq)
	assert.Equal(t, 7, m.To.Seat)
	assert.Equal(t, 1, m.From.TableNumber)
}

func TestFromSnapshot(t *testing.T) {
	joinMsg := FromSnapshot(orchestrator.Snapshot{Version: 4})
	assert.Equal(t, MsgSnapshot, joinMsg.Type)

	eligible := []seating.Participant{{ID: "p1"}, {ID: "p2"}}
	msg := FromSnapshot(orchestrator.Snapshot{Version: 5, Origin: "c1", ClientSeq: 9, Event: &engine.Event{Type: engine.EvtTableBroken, TableNumber: 2}, Eligible: eligible})
	assert.Equal(t, "table-broken", msg.Type)
	assert.Equal(t, int64(9), msg.ClientSeq)
	assert.Equal(t, eligible, msg.Eligible)
}

func TestErrorMessage(t *testing.T) {
	seat := &seating.Seat{Number: 3, Occupant: &seating.Participant{ID: "p7"}}
	msg := ErrorMessage(seating.Conflict(seating.ErrSeatOccupied, 2, seat), MsgRelocate)
	assert.Equal(t, MsgError, msg.Type)
	assert.Equal(t, "conflict", msg.Kind)
	assert.Equal(t, MsgRelocate, msg.FailedAction)
	require.NotNil(t, msg.Current)
	assert.Equal(t, "p7", msg.Current.Occupant.ID)

	msg = ErrorMessage(seating.OverCapacity(seating.ErrMaxTablesReached, "limit 2"), MsgCreateTable)
	assert.Equal(t, "capacity", msg.Kind)
	assert.Nil(t, msg.Current)
}
