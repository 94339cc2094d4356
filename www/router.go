package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"punchlab/engine"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// SSE
	r.Get("/events", hub.SSEHandler)

	// Auth
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)
	r.Get("/api/whoami", h.handleWhoAmI)

	// Read API (no auth required)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealthCheck)
		r.Get("/executions", h.apiListExecutions)
		r.Get("/executions/{id}", h.apiGetExecution)
		r.Get("/customers", h.apiListCustomers)
		r.Get("/templates/{environment}/customer/{customerID}", h.apiPreviewTemplate)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/executions", h.apiSubmitExecution)
		r.Post("/api/executions/{id}/redirect/now", h.apiRedirectNow)
		r.Post("/api/executions/{id}/redirect/open", h.apiRedirectOpenNew)
		r.Post("/api/executions/{id}/redirect/cancel", h.apiRedirectCancel)
		r.Post("/api/customers", h.apiCreateCustomer)
		r.Put("/api/customers/{customerID}", h.apiUpdateCustomer)
		r.Delete("/api/customers/{customerID}", h.apiDeleteCustomer)
		r.Get("/api/config", h.apiGetConfig)
		r.Post("/api/config", h.apiSaveConfig)
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}
