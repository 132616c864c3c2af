package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"personasim/pkg/completion"
	"personasim/pkg/history"
	"personasim/pkg/persona"
	"personasim/pkg/prompt"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	PersonaID string            `json:"persona_id"`
	Mode      string            `json:"mode"`
	Message   string            `json:"message"`
	History   []history.RawTurn `json:"history"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleStatus reports whether the completion backend is usable. Only a
// readiness flag and provider name leave the server; key material never
// does.
func (s *Server) handleStatus(c *gin.Context) {
	ready, provider := s.completer.Ready(s.registry.All())
	c.JSON(http.StatusOK, gin.H{"ready": ready, "provider": provider})
}

func (s *Server) handlePersonas(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Public())
}

// validateChat runs the shared request checks for both chat endpoints.
// The upstream is never called when any of these fail.
func (s *Server) validateChat(c *gin.Context) (*persona.Persona, prompt.Mode, *chatRequest, bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large."})
			return nil, "", nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return nil, "", nil, false
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No message provided."})
		return nil, "", nil, false
	}

	mode, err := prompt.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unrecognized mode."})
		return nil, "", nil, false
	}

	p, err := s.registry.Lookup(req.PersonaID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown persona."})
		return nil, "", nil, false
	}

	return p, mode, &req, true
}

func (s *Server) assemble(p *persona.Persona, mode prompt.Mode, req *chatRequest) []prompt.Message {
	turns := history.Normalize(req.History, s.cfg.Limits.HistoryMaxTurns, s.cfg.Limits.TurnMaxChars)
	firstReply := history.FirstReply(turns)
	return prompt.Assemble(p, mode, firstReply, turns, req.Message, s.cfg.Limits.DossierMaxChars)
}

func (s *Server) upstreamContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.cfg.Limits.UpstreamTimeoutSeconds) * time.Second
	return context.WithTimeout(c.Request.Context(), timeout)
}

func (s *Server) handleChat(c *gin.Context) {
	p, mode, req, ok := s.validateChat(c)
	if !ok {
		return
	}

	ctx, cancel := s.upstreamContext(c)
	defer cancel()

	reply, err := s.completer.Complete(ctx, s.assemble(p, mode, req), p)
	if err != nil {
		status, msg := upstreamErrorResponse(err, p)
		log.Printf("[%s] chat error (persona=%s): %v", c.GetString("request_id"), p.ID, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// handleChatStream delivers the same reply as handleChat, as SSE frames:
// {"token": ...} fragments in arrival order, then {"done": true}, or an
// {"error": ...} frame.
func (s *Server) handleChatStream(c *gin.Context) {
	p, mode, req, ok := s.validateChat(c)
	if !ok {
		return
	}

	ctx, cancel := s.upstreamContext(c)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	err := s.completer.CompleteStream(ctx, s.assemble(p, mode, req), p, func(token string) {
		c.SSEvent("", gin.H{"token": token})
		c.Writer.Flush()
	})
	if err != nil {
		_, msg := upstreamErrorResponse(err, p)
		log.Printf("[%s] chat stream error (persona=%s): %v", c.GetString("request_id"), p.ID, err)
		c.SSEvent("", gin.H{"error": msg})
		c.Writer.Flush()
		return
	}

	c.SSEvent("", gin.H{"done": true})
	c.Writer.Flush()
}

// upstreamErrorResponse maps completion failures to an HTTP status and a
// human-readable message. Nothing here is retried.
func upstreamErrorResponse(err error, p *persona.Persona) (int, string) {
	switch {
	case errors.Is(err, completion.ErrNoAPIKey):
		return http.StatusServiceUnavailable,
			"The API key for this persona is not configured. Please set " + p.APIKeyEnv + " in the environment."
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The AI service took too long to respond. Please try again."
	case errors.Is(err, completion.ErrEmptyReply):
		return http.StatusBadGateway, "The AI service returned an empty reply."
	default:
		var apiErr *completion.APIError
		if errors.As(err, &apiErr) {
			return http.StatusBadGateway, "AI service error: upstream returned an error."
		}
		return http.StatusBadGateway, "AI service error: " + err.Error()
	}
}

// handleFallback serves the single-page client: unknown /api routes get a
// JSON 404, asset paths are served from the static dir, and extension-less
// paths fall back to index.html.
func (s *Server) handleFallback(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
		return
	}

	file := filepath.Join(s.cfg.Server.StaticDir, filepath.Clean("/"+path))
	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		c.File(file)
		return
	}

	if filepath.Ext(path) == "" {
		index := filepath.Join(s.cfg.Server.StaticDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			c.File(index)
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
}
