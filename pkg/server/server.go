// Package server maps the HTTP surface onto the persona chat pipeline.
// Every request is independent: the only shared state is the read-only
// persona registry and the completion client.
package server

import (
	"context"
	"log"

	"personasim/pkg/config"
	"personasim/pkg/persona"
	"personasim/pkg/prompt"

	"github.com/gin-gonic/gin"
)

// ChatCompleter is the completion surface the handlers depend on. The
// buffered and streaming entry points are two deliveries of the same
// upstream call; each endpoint picks one.
type ChatCompleter interface {
	Complete(ctx context.Context, msgs []prompt.Message, p *persona.Persona) (string, error)
	CompleteStream(ctx context.Context, msgs []prompt.Message, p *persona.Persona, onToken func(string)) error
	Ready(personas []*persona.Persona) (bool, string)
}

// AuthConfig controls the Basic Auth gate in front of the API.
type AuthConfig struct {
	Enabled  bool
	Username string
	Password string
}

type Server struct {
	cfg       *config.Config
	registry  *persona.Registry
	completer ChatCompleter
	auth      AuthConfig
}

func New(cfg *config.Config, registry *persona.Registry, completer ChatCompleter, auth AuthConfig) *Server {
	return &Server{
		cfg:       cfg,
		registry:  registry,
		completer: completer,
		auth:      auth,
	}
}

// Router builds the gin engine. Health stays outside the auth gate so
// load balancers can probe without credentials; everything else under
// /api sits behind it.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLog())

	r.GET("/api/health", s.handleHealth)

	api := r.Group("/api", basicAuth(s.auth))
	api.GET("/status", s.handleStatus)
	api.GET("/personas", s.handlePersonas)
	api.POST("/chat", bodyLimit(s.cfg.Limits.RequestMaxBytes), s.handleChat)
	api.POST("/chat/stream", bodyLimit(s.cfg.Limits.RequestMaxBytes), s.handleChatStream)

	r.NoRoute(s.handleFallback)

	return r
}

func (s *Server) Run(addr string) error {
	log.Printf("Listening on %s", addr)
	return s.Router().Run(addr)
}
