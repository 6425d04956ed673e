// Package mockserver is a development stand-in for the remote coding-agent
// service. It serves the projects/sessions/MCP endpoints from in-memory state
// and streams canned replies over the same SSE wire framing the real service
// uses, so clients can be exercised without a backend.
package mockserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/reel/pkg/api"
	"github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/sse"
)

// errorResponse is the JSON error body every failing endpoint returns.
type errorResponse struct {
	Error string `json:"error"`
}

// Config holds configuration for the mock server.
type Config struct {
	// ListenAddr is the address Run listens on, e.g. ":8417".
	ListenAddr string

	// ChunkDelay paces the streamed reply chunks. Zero means no delay,
	// which tests use; the CLI sets a small delay so streaming is visible.
	ChunkDelay time.Duration

	// Logger defaults to a no-op logger when nil.
	Logger *slog.Logger
}

// Server is the mock agent service.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App

	mu       sync.Mutex
	projects []api.Project
	sessions map[string]api.Session
	servers  map[string]api.MCPServer
}

// NewServer creates a mock server pre-seeded with one project.
func NewServer(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: log,
		app:    app,
		projects: []api.Project{
			{
				ID:        uuid.NewString(),
				Name:      "scratch",
				Path:      "/workspace/scratch",
				CreatedAt: time.Now().UTC(),
			},
		},
		sessions: make(map[string]api.Session),
		servers:  make(map[string]api.MCPServer),
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/projects", s.handleListProjects)
	app.Get("/v1/projects/:id/sessions", s.handleListSessions)
	app.Post("/v1/projects/:id/sessions", s.handleCreateSession)
	app.Delete("/v1/sessions/:id", s.handleDeleteSession)
	app.Post("/v1/sessions/:id/messages", s.handleSendMessage)
	app.Post("/v1/sessions/:id/messages/stream", s.handleStreamMessage)
	app.Get("/v1/mcp/servers", s.handleListMCPServers)
	app.Put("/v1/mcp/servers/:name", s.handlePutMCPServer)
	app.Delete("/v1/mcp/servers/:name", s.handleRemoveMCPServer)

	return s
}

// Run starts the mock server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting mock service", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the mock server on an existing listener, which lets
// tests bind to port 0.
func (s *Server) RunWithListener(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the mock server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleListProjects(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(s.projects)
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	projectID := c.Params("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]api.Session, 0)
	for _, sess := range s.sessions {
		if sess.ProjectID == projectID {
			sessions = append(sessions, sess)
		}
	}
	return c.JSON(sessions)
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	projectID := c.Params("id")

	var req api.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.projectExists(projectID) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "project not found"})
	}

	now := time.Now().UTC()
	sess := api.Session{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     req.Title,
		Model:     req.Model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess

	return c.Status(fiber.StatusCreated).JSON(sess)
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	id := c.Params("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}
	delete(s.sessions, id)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	id := c.Params("id")

	var req api.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	if !s.sessionExists(id) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}

	return c.JSON(api.MessageResponse{
		SessionID: id,
		Content:   replyFor(req.Content),
	})
}

func (s *Server) handleStreamMessage(c *fiber.Ctx) error {
	id := c.Params("id")

	var req api.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	if !s.sessionExists(id) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "session not found"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// io.Pipe instead of SetBodyStreamWriter: pipe writes block until
	// fasthttp's chunked writer consumes them, so every chunk reaches the
	// socket as it is produced instead of pooling in an internal buffer.
	pr, pw := io.Pipe()
	go s.streamReply(pw, replyFor(req.Content))

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// streamReply writes the reply word by word in the service's wire framing:
// one data line per chunk, terminated by the done sentinel.
func (s *Server) streamReply(pw *io.PipeWriter, reply string) {
	defer pw.Close()

	for _, word := range strings.Fields(reply) {
		chunk, err := json.Marshal(api.StreamChunk{Type: "text", Content: word + " "})
		if err != nil {
			s.logger.Error("failed to marshal chunk", "error", err)
			return
		}

		if _, err := fmt.Fprintf(pw, "%s%s\n", sse.DataPrefix, chunk); err != nil {
			// Client went away mid-stream.
			s.logger.Debug("stream write failed", "error", err)
			return
		}

		if s.config.ChunkDelay > 0 {
			time.Sleep(s.config.ChunkDelay)
		}
	}

	_, _ = fmt.Fprintf(pw, "%s%s\n", sse.DataPrefix, sse.DoneSentinel)
}

func (s *Server) handleListMCPServers(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	servers := make([]api.MCPServer, 0, len(s.servers))
	for _, srv := range s.servers {
		servers = append(servers, srv)
	}
	return c.JSON(servers)
}

func (s *Server) handlePutMCPServer(c *fiber.Ctx) error {
	name := c.Params("name")

	var server api.MCPServer
	if err := c.BodyParser(&server); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	server.Name = name

	s.mu.Lock()
	s.servers[name] = server
	s.mu.Unlock()

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRemoveMCPServer(c *fiber.Ctx) error {
	name := c.Params("name")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.servers[name]; !ok {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "server not found"})
	}
	delete(s.servers, name)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) projectExists(id string) bool {
	for _, p := range s.projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) sessionExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

// replyFor produces the canned assistant reply for a prompt.
func replyFor(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "I need a prompt to work with."
	}
	return fmt.Sprintf("You said %q. This is a canned reply from the mock service.", prompt)
}
