// Package api is the typed surface of the remote coding-agent service:
// projects, chat sessions, MCP server records, and message exchange. It is a
// thin layer over pkg/client for the request/response endpoints; streaming
// replies go through pkg/stream against StreamMessagePath.
package api

import "time"

// Project is a working directory the remote service can run the agent in.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one conversation with the agent inside a project.
type Session struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MCPServer is a tool-server configuration record on the remote service.
// Transport is "stdio" or "http"; Command applies to stdio servers, URL to
// http servers.
type MCPServer struct {
	Name      string            `json:"name"`
	Transport string            `json:"transport"`
	Command   string            `json:"command,omitempty"`
	URL       string            `json:"url,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Enabled   bool              `json:"enabled"`
}

// CreateSessionRequest starts a new session in a project.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
	Model string `json:"model,omitempty"`
}

// MessageRequest is the body of a message send, streaming or not.
type MessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse is the complete reply from the non-streaming endpoint.
type MessageResponse struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// StreamChunk is the JSON payload carried by each streamed data line. Type
// is "text" for assistant output and "tool" for tool activity notices.
type StreamChunk struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
