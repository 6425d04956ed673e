package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/api"
	"github.com/papercomputeco/reel/pkg/client"
)

var _ = Describe("Service", func() {
	var (
		srv *httptest.Server
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if srv != nil {
			srv.Close()
			srv = nil
		}
	})

	newService := func() *api.Service {
		c, err := client.New(client.Config{BaseURL: srv.URL})
		Expect(err).NotTo(HaveOccurred())
		return api.NewService(c)
	}

	Describe("StreamMessagePath", func() {
		It("builds the streaming endpoint for a session", func() {
			Expect(api.StreamMessagePath("abc-123")).To(
				Equal("/v1/sessions/abc-123/messages/stream"))
		})

		It("escapes awkward session IDs", func() {
			Expect(api.StreamMessagePath("a/b")).To(
				Equal("/v1/sessions/a%2Fb/messages/stream"))
		})
	})

	Describe("ListProjects", func() {
		It("returns the decoded project list", func() {
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/projects"))
				_ = json.NewEncoder(w).Encode([]api.Project{
					{ID: "p1", Name: "reel", Path: "/src/reel"},
				})
			}))

			projects, err := newService().ListProjects(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(projects).To(HaveLen(1))
			Expect(projects[0].Name).To(Equal("reel"))
		})
	})

	Describe("sessions", func() {
		It("lists sessions under the project path", func() {
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/projects/p1/sessions"))
				_ = json.NewEncoder(w).Encode([]api.Session{{ID: "s1", ProjectID: "p1"}})
			}))

			sessions, err := newService().ListSessions(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(1))
			Expect(sessions[0].ID).To(Equal("s1"))
		})

		It("creates a session with the requested title", func() {
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))

				var req api.CreateSessionRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				_ = json.NewEncoder(w).Encode(api.Session{ID: "s2", ProjectID: "p1", Title: req.Title})
			}))

			session, err := newService().CreateSession(ctx, "p1", api.CreateSessionRequest{Title: "refactor"})
			Expect(err).NotTo(HaveOccurred())
			Expect(session.ID).To(Equal("s2"))
			Expect(session.Title).To(Equal("refactor"))
		})

		It("deletes a session by ID", func() {
			var gotPath, gotMethod string
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotMethod = r.Method
				w.WriteHeader(http.StatusNoContent)
			}))

			Expect(newService().DeleteSession(ctx, "s1")).To(Succeed())
			Expect(gotMethod).To(Equal(http.MethodDelete))
			Expect(gotPath).To(Equal("/v1/sessions/s1"))
		})

		It("wraps a not-found delete in a typed error", func() {
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			}))

			err := newService().DeleteSession(ctx, "missing")
			Expect(client.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("SendMessage", func() {
		It("posts the message and returns the full reply", func() {
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/sessions/s1/messages"))

				var req api.MessageRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Content).To(Equal("hello"))

				_ = json.NewEncoder(w).Encode(api.MessageResponse{SessionID: "s1", Content: "hi there"})
			}))

			resp, err := newService().SendMessage(ctx, "s1", api.MessageRequest{Content: "hello"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("hi there"))
		})
	})

	Describe("MCP servers", func() {
		It("lists configured servers", func() {
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/mcp/servers"))
				_ = json.NewEncoder(w).Encode([]api.MCPServer{
					{Name: "fs", Transport: "stdio", Command: "mcp-fs", Enabled: true},
				})
			}))

			servers, err := newService().ListMCPServers(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(servers).To(HaveLen(1))
			Expect(servers[0].Name).To(Equal("fs"))
		})

		It("puts a server record by name", func() {
			var gotPath string
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				Expect(r.Method).To(Equal(http.MethodPut))

				var server api.MCPServer
				Expect(json.NewDecoder(r.Body).Decode(&server)).To(Succeed())
				Expect(server.Transport).To(Equal("http"))
				w.WriteHeader(http.StatusNoContent)
			}))

			err := newService().PutMCPServer(ctx, api.MCPServer{
				Name: "search", Transport: "http", URL: "http://localhost:9000",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(gotPath).To(Equal("/v1/mcp/servers/search"))
		})

		It("removes a server record by name", func() {
			var gotPath string
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(http.StatusNoContent)
			}))

			Expect(newService().RemoveMCPServer(ctx, "fs")).To(Succeed())
			Expect(gotPath).To(Equal("/v1/mcp/servers/fs"))
		})
	})
})
