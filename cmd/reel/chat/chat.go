// Package chatcmder provides the chat command: an interactive conversation
// with the remote agent, streamed over SSE.
package chatcmder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/reel/pkg/api"
	"github.com/papercomputeco/reel/pkg/cancel"
	"github.com/papercomputeco/reel/pkg/client"
	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/credentials"
	"github.com/papercomputeco/reel/pkg/dotdir"
	"github.com/papercomputeco/reel/pkg/history"
	"github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/sse"
	"github.com/papercomputeco/reel/pkg/stream"
)

var (
	userPrompt      = cliui.PromptStyle.Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("agent> ")
)

type chatCommander struct {
	baseURL   string
	sessionID string
	noStream  bool
	bufferKiB uint
	debug     bool
	configDir string

	cfg      *config.Config
	client   *client.Client
	service  *api.Service
	recorder *history.Recorder
}

const chatLongDesc string = `Start an interactive chat with the remote agent.

Replies stream token by token over SSE by default. Ctrl+C during a reply
cancels just that reply; the conversation keeps going. Transcripts are
recorded locally when history is enabled.

Examples:
  reel chat --session 4f6c2a
  reel chat --session 4f6c2a --no-stream
  reel chat --session 4f6c2a --base-url http://localhost:8417`

const chatShortDesc string = "Interactive chat with the remote agent"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagBaseURL,
				config.FlagSSEBuffer,
			})

			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			cmder.baseURL = cfg.Client.BaseURL
			cmder.bufferKiB = cfg.Client.SSEBufferKiB

			if !cmd.Flags().Changed("no-stream") {
				cmder.noStream = !cfg.Client.StreamingDefault
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddUintFlag(cmd, config.Flags, config.FlagSSEBuffer, &cmder.bufferKiB)
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Remote session ID (required)")
	cmd.Flags().BoolVar(&cmder.noStream, "no-stream", false, "Wait for complete replies instead of streaming")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func (c *chatCommander) run() error {
	log := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	apiKey, err := creds.Resolve()
	if err != nil {
		return err
	}

	c.client, err = client.New(client.Config{
		BaseURL: c.baseURL,
		APIKey:  apiKey,
		Logger:  log,
	})
	if err != nil {
		return err
	}
	c.service = api.NewService(c.client)

	if c.cfg.History.Enabled {
		store, err := c.openHistory()
		if err != nil {
			// Chat still works without local transcripts.
			fmt.Fprintf(os.Stderr, "  %s history disabled: %v\n", cliui.WarnStyle.Render("!"), err)
		} else {
			defer store.Close()
			c.recorder = history.NewRecorder(history.RecorderConfig{Store: store, Logger: log})
			defer c.recorder.Close()
		}
	}

	fmt.Println()
	fmt.Printf("  %s\n", cliui.KeyValue("Session", c.sessionID))
	fmt.Printf("  %s\n\n", cliui.KeyValue("Service", c.client.BaseURL()))
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit. Ctrl+C cancels a reply."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		c.record(history.RoleUser, input)

		var reply string
		if c.noStream {
			reply, err = c.sendComplete(input)
		} else {
			reply, err = c.sendStreaming(input)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n  %s %v\n", cliui.FailMark, err)
			continue
		}

		if reply != "" {
			c.record(history.RoleAssistant, reply)
		}

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// sendStreaming sends one message and streams the reply to stdout. Ctrl+C
// sweeps the in-flight stream through a linked cancellation token without
// ending the chat loop.
func (c *chatCommander) sendStreaming(input string) (string, error) {
	body, err := json.Marshal(api.MessageRequest{Content: input})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var (
		full      strings.Builder
		done      = make(chan error, 1)
		cancelled bool
	)

	sess := stream.New(stream.Config{BufferKiB: int(c.bufferKiB)}, stream.Handler{
		OnEvent: func(ev sse.Event) {
			var chunk api.StreamChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				// Unknown payloads are skipped, not fatal.
				return
			}
			if chunk.Content != "" {
				fmt.Print(chunk.Content)
				full.WriteString(chunk.Content)
			}
		},
		OnDone: func() {
			done <- nil
		},
		OnError: func(err *stream.Error) {
			done <- err
		},
	})

	tok := cancel.NewLinkedToken()
	tok.Link(cancel.Func(sess.Stop))

	// Ctrl+C cancels the token, which sweeps the session. Cancellation is
	// silent, so unblock the wait ourselves.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	endpoint := c.client.Endpoint(api.StreamMessagePath(c.sessionID))
	if err := sess.Start(endpoint, body, c.client.AuthHeaders()); err != nil {
		return "", err
	}

	fmt.Print(assistantPrompt)

	select {
	case err := <-done:
		if err != nil {
			return full.String(), err
		}
	case <-sigCh:
		tok.Cancel()
		cancelled = true
	}

	if cancelled {
		fmt.Printf("\n  %s %s", cliui.WarnStyle.Render("!"), cliui.DimStyle.Render("reply cancelled"))
		return "", nil
	}

	return full.String(), nil
}

// sendComplete sends one message and waits for the whole reply. Complete
// replies are rendered as markdown; streamed ones print raw because chunks
// arrive mid-construct.
func (c *chatCommander) sendComplete(input string) (string, error) {
	resp, err := c.service.SendMessage(context.Background(), c.sessionID, api.MessageRequest{Content: input})
	if err != nil {
		return "", err
	}

	rendered, err := cliui.RenderMarkdown(resp.Content)
	if err != nil {
		rendered = resp.Content
	}

	fmt.Print(assistantPrompt)
	fmt.Print(rendered)

	return resp.Content, nil
}

func (c *chatCommander) record(role, content string) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(history.Turn{
		SessionID: c.sessionID,
		Role:      role,
		Content:   content,
	})
}

// openHistory resolves the transcript database path and opens the store.
func (c *chatCommander) openHistory() (*history.SQLiteStore, error) {
	path := c.cfg.History.SQLitePath
	if path == "" {
		target, err := dotdir.NewManager().Target(c.configDir)
		if err != nil {
			return nil, err
		}
		path = filepath.Join(target, "history.db")
	}

	return history.NewSQLiteStore(path)
}
