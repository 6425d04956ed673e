package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/papercomputeco/reel/pkg/client"
)

// Service wraps a client.Client with the typed endpoint operations.
type Service struct {
	client *client.Client
}

// NewService returns a Service talking through c.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// StreamMessagePath returns the streaming-messages endpoint path for a
// session, for use with a pkg/stream Session.
func StreamMessagePath(sessionID string) string {
	return fmt.Sprintf("/v1/sessions/%s/messages/stream", url.PathEscape(sessionID))
}

// ListProjects returns the projects known to the service.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := s.client.Get(ctx, "/v1/projects", &projects); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// ListSessions returns the sessions of one project.
func (s *Service) ListSessions(ctx context.Context, projectID string) ([]Session, error) {
	var sessions []Session
	path := fmt.Sprintf("/v1/projects/%s/sessions", url.PathEscape(projectID))
	if err := s.client.Get(ctx, path, &sessions); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// CreateSession starts a new session in a project.
func (s *Service) CreateSession(ctx context.Context, projectID string, req CreateSessionRequest) (*Session, error) {
	var session Session
	path := fmt.Sprintf("/v1/projects/%s/sessions", url.PathEscape(projectID))
	if err := s.client.Post(ctx, path, req, &session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session and its server-side transcript.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/v1/sessions/%s", url.PathEscape(sessionID))
	if err := s.client.Delete(ctx, path); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// SendMessage sends a message and waits for the complete reply. Streaming
// consumers use a pkg/stream Session against StreamMessagePath instead.
func (s *Service) SendMessage(ctx context.Context, sessionID string, req MessageRequest) (*MessageResponse, error) {
	var resp MessageResponse
	path := fmt.Sprintf("/v1/sessions/%s/messages", url.PathEscape(sessionID))
	if err := s.client.Post(ctx, path, req, &resp); err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	return &resp, nil
}

// ListMCPServers returns the MCP server records configured on the service.
func (s *Service) ListMCPServers(ctx context.Context) ([]MCPServer, error) {
	var servers []MCPServer
	if err := s.client.Get(ctx, "/v1/mcp/servers", &servers); err != nil {
		return nil, fmt.Errorf("listing mcp servers: %w", err)
	}
	return servers, nil
}

// PutMCPServer creates or replaces an MCP server record by name.
func (s *Service) PutMCPServer(ctx context.Context, server MCPServer) error {
	path := fmt.Sprintf("/v1/mcp/servers/%s", url.PathEscape(server.Name))
	if err := s.client.Put(ctx, path, server, nil); err != nil {
		return fmt.Errorf("putting mcp server: %w", err)
	}
	return nil
}

// RemoveMCPServer deletes an MCP server record by name.
func (s *Service) RemoveMCPServer(ctx context.Context, name string) error {
	path := fmt.Sprintf("/v1/mcp/servers/%s", url.PathEscape(name))
	if err := s.client.Delete(ctx, path); err != nil {
		return fmt.Errorf("removing mcp server: %w", err)
	}
	return nil
}
