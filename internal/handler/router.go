package handler

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/haley/backend/internal/config"
	"github.com/zhouzirui/haley/backend/internal/handler/auth"
	"github.com/zhouzirui/haley/backend/internal/handler/debug"
	"github.com/zhouzirui/haley/backend/internal/handler/persona"
	middlewarePkg "github.com/zhouzirui/haley/backend/internal/middleware"
	personaModel "github.com/zhouzirui/haley/backend/internal/model/persona"
	"github.com/zhouzirui/haley/backend/web"
)

// NewRouter wires HTTP routes to core services.
// relay serves /ws/chat; prober may be nil, in which case /debug is not mounted.
func NewRouter(cfg *config.Config, pages *template.Template, personas personaModel.Store, relay http.Handler, prober debug.Prober) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Login, logout and the home page
	auth.New(cfg.Auth, pages, cfg.Relay.Mode).RegisterRoutes(r)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

	r.Group(func(protected chi.Router) {
		protected.Use(middlewarePkg.RequireAuth(cfg.Auth))

		protected.Route("/api", func(api chi.Router) {
			persona.New(personas, personaModel.DefaultID).RegisterRoutes(api)
		})

		protected.Handle("/ws/chat", relay)

		if cfg.Debug.Enabled && prober != nil {
			debug.New(prober, cfg.Debug.ProbeModels).RegisterRoutes(protected)
		}
	})

	return r
}
