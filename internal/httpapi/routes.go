package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/table-balancer/internal/hub"
	"github.com/DoyleJ11/table-balancer/internal/logging"
	"github.com/DoyleJ11/table-balancer/internal/roster"
	"github.com/DoyleJ11/table-balancer/internal/seating"
	"github.com/DoyleJ11/table-balancer/internal/ws"
)

// SetupRoutes builds the router. metrics may be nil to leave /metrics out,
// and members nil when the roster arrives from elsewhere.
func SetupRoutes(h *hub.Hub, rules *seating.RuleBook, members *roster.Memory, metrics http.Handler, log *zap.Logger) http.Handler {
	log = logging.OrNop(log)
	a := &api{hub: h, rules: rules, roster: members, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Get("/ws", ws.Handler(h, rules, log))

	r.Get("/rules", a.getRules)
	r.Put("/rules", a.putRules)

	r.Get("/events", a.listEvents)
	r.Route("/events/{eventID}", func(r chi.Router) {
		r.Delete("/", a.closeEvent)
		r.Post("/layout", a.createLayout)
		r.Get("/layout", a.getLayout)
		r.Get("/stats", a.getStats)
		r.Get("/seats/available", a.getAvailableSeats)
		r.Post("/commands", a.postCommand)

		if members != nil {
			r.Put("/roster", a.putRoster)
			r.Get("/participants", a.listParticipants)
			r.Post("/participants", a.registerParticipants)
			r.Delete("/participants/{participantID}", a.eliminateParticipant)
		}
	})
	return r
}
