package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/warikan-app/warikan-api/internal/platform/metrics"
)

type RouterOptions struct {
	// AuthMiddleware resolves the caller's AuthState. Without one every
	// caller is Unauthorized.
	AuthMiddleware func(http.Handler) http.Handler
	RateLimit      RateLimitOptions
	Metrics        *metrics.HTTP
	Logger         *zap.Logger
}

// NewRouter constructs the API router with no auth middleware.
func NewRouter(s *Server) http.Handler {
	return NewRouterWithOptions(s, RouterOptions{})
}

func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(instrument(log, opts.Metrics))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeRouteNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllow, "method not allowed", nil)
	})

	// Probes are unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}
		r.Use(NewRateLimitMiddleware(opts.RateLimit))

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.CreateUser)
			r.Get("/", s.GetUsers)
			r.Get("/{userId}", s.GetUser)
			r.Delete("/{userId}", s.DeleteUser)
		})
		r.Route("/groups", func(r chi.Router) {
			r.Post("/", s.CreateGroup)
			r.Get("/", s.ListGroups)
			r.Get("/{groupId}", s.GetGroup)
			r.Delete("/{groupId}", s.DeleteGroup)
			r.Post("/{groupId}/participants", s.AddParticipant)
			r.Get("/{groupId}/payments", s.ListGroupPayments)
		})
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", s.CreatePayment)
			r.Get("/{paymentId}", s.GetPayment)
			r.Delete("/{paymentId}", s.DeletePayment)
		})
	})
	return r
}
