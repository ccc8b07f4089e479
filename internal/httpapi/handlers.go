package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/table-balancer/internal/engine"
	"github.com/DoyleJ11/table-balancer/internal/hub"
	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/roster"
	"github.com/DoyleJ11/table-balancer/internal/seating"
	"github.com/DoyleJ11/table-balancer/internal/types"
)

const (
	originHTTP   = "http"
	replyTimeout = 5 * time.Second
)

type createLayoutRequest struct {
	Actor        string                `json:"actor,omitempty"`
	Algorithm    seating.Algorithm     `json:"algorithm,omitempty"`
	Params       map[string]any        `json:"params,omitempty"`
	Participants []seating.Participant `json:"participants,omitempty"`
}

type api struct {
	hub    *hub.Hub
	rules  *seating.RuleBook
	roster *roster.Memory
	log    *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, seating.ErrLayoutHalted):
		return http.StatusServiceUnavailable
	case errors.Is(err, seating.ErrNoLayout):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch seating.Kind(err) {
	case "validation":
		return http.StatusBadRequest
	case "conflict":
		return http.StatusConflict
	case "capacity":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (a *api) fail(w http.ResponseWriter, err error, action string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", zap.String("action", action), zap.Error(err))
	}
	writeJSON(w, status, types.ErrorMessage(err, action))
}

// submit sends cmd to the event's orchestrator and waits for the outcome.
func (a *api) submit(ctx context.Context, o *orchestrator.Orchestrator, seq int64, cmd engine.Command) (*orchestrator.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	reply := make(chan orchestrator.Outcome, 1)
	select {
	case o.Inbox() <- orchestrator.FromClient{ClientID: originHTTP, Seq: seq, Cmd: cmd, Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.Snapshot, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *api) event(w http.ResponseWriter, r *http.Request) *orchestrator.Orchestrator {
	o, err := a.hub.Get(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		a.fail(w, err, "")
		return nil
	}
	if o == nil {
		http.Error(w, "event not found", http.StatusNotFound)
		return nil
	}
	return o
}

func (a *api) listEvents(w http.ResponseWriter, r *http.Request) {
	ids, err := a.hub.List(r.Context())
	if err != nil {
		a.fail(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (a *api) closeEvent(w http.ResponseWriter, r *http.Request) {
	if err := a.hub.Remove(r.Context(), chi.URLParam(r, "eventID")); err != nil {
		a.fail(w, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) createLayout(w http.ResponseWriter, r *http.Request) {
	var req createLayoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
	}
	o, err := a.hub.Ensure(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		a.fail(w, err, types.MsgInitialize)
		return
	}
	snap, err := a.submit(r.Context(), o, 0, engine.Command{
		Type:         engine.CmdInitialize,
		Actor:        req.Actor,
		Participants: req.Participants,
		Algorithm:    seating.AlgorithmSelection{Name: req.Algorithm, Params: req.Params},
	})
	if err != nil {
		a.fail(w, err, types.MsgInitialize)
		return
	}
	writeJSON(w, http.StatusCreated, types.FromSnapshot(*snap))
}

func (a *api) getLayout(w http.ResponseWriter, r *http.Request) {
	o := a.event(w, r)
	if o == nil {
		return
	}
	snap := o.Latest()
	if snap == nil {
		a.fail(w, seating.ErrNoLayout, "")
		return
	}
	writeJSON(w, http.StatusOK, types.FromSnapshot(*snap))
}

func (a *api) getStats(w http.ResponseWriter, r *http.Request) {
	o := a.event(w, r)
	if o == nil {
		return
	}
	st, err := o.Stats()
	if err != nil {
		a.fail(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *api) getAvailableSeats(w http.ResponseWriter, r *http.Request) {
	o := a.event(w, r)
	if o == nil {
		return
	}
	seats, err := o.AvailableSeats()
	if err != nil {
		a.fail(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, seats)
}

func (a *api) postCommand(w http.ResponseWriter, r *http.Request) {
	var cm types.ClientMessage
	if err := json.NewDecoder(r.Body).Decode(&cm); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	cmd, err := types.ToCommand(cm)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorMessage(err, cm.Type))
		return
	}
	if cmd.Actor == "" {
		cmd.Actor = originHTTP
	}
	o := a.event(w, r)
	if o == nil {
		return
	}
	snap, err := a.submit(r.Context(), o, cm.Seq, cmd)
	if err != nil {
		a.fail(w, err, cm.Type)
		return
	}
	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, types.FromSnapshot(*snap))
}

func (a *api) getRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.rules.Current())
}

func (a *api) putRules(w http.ResponseWriter, r *http.Request) {
	var rules []seating.Rule
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	current, err := a.rules.Update(rules...)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorMessage(err, types.MsgSetRules))
		return
	}
	a.log.Info("rules updated", zap.Any("rules", current))
	writeJSON(w, http.StatusOK, current)
}

func (a *api) putRoster(w http.ResponseWriter, r *http.Request) {
	var ps []seating.Participant
	if err := json.NewDecoder(r.Body).Decode(&ps); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	eventID := chi.URLParam(r, "eventID")
	if err := a.roster.Load(r.Context(), eventID, ps); err != nil {
		a.fail(w, err, "roster")
		return
	}
	writeJSON(w, http.StatusOK, a.roster.Eligible(eventID))
}

func (a *api) listParticipants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.roster.Eligible(chi.URLParam(r, "eventID")))
}

func (a *api) registerParticipants(w http.ResponseWriter, r *http.Request) {
	var ps []seating.Participant
	if err := json.NewDecoder(r.Body).Decode(&ps); err != nil || len(ps) == 0 {
		http.Error(w, "expected a list of participants", http.StatusBadRequest)
		return
	}
	if err := a.roster.Register(r.Context(), chi.URLParam(r, "eventID"), ps...); err != nil {
		a.fail(w, err, "register")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *api) eliminateParticipant(w http.ResponseWriter, r *http.Request) {
	if err := a.roster.Eliminate(r.Context(), chi.URLParam(r, "eventID"), chi.URLParam(r, "participantID")); err != nil {
		a.fail(w, err, "eliminate")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
