package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	handlers "reporter/src/api/handlers"
	"reporter/src/config"
)

type Server struct {
	Router  *chi.Mux
	Handler handlers.Handler
	Port    string
}

func NewServer(cfg *config.Config) (*Server, error) {
	handler, err := handlers.NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	server := &Server{
		Router:  chi.NewRouter(),
		Handler: *handler,
		Port:    cfg.Service.Port,
	}
	server.InitRoutes()
	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) InitRoutes() {
	s.Router.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	s.Router.Get("/alive", handlers.Healthcheck)

	s.Router.Route("/api/send-email", func(r chi.Router) {
		r.Post("/send", s.Handler.SendEmailReports)
	})
}

func NewHTTPServer(server *Server) *http.Server {
	httpServer := &http.Server{
		Addr:        ":" + server.Port,
		ReadTimeout: 30 * time.Second,
		// Dispatch runs synchronously inside the request, so writes may
		// trail a long loop.
		WriteTimeout: 15 * time.Minute,
		Handler:      server,
	}
	return httpServer
}
