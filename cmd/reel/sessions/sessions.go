// Package sessionscmder provides the sessions command for managing remote
// conversations: list, new, rm.
package sessionscmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/reel/pkg/api"
	"github.com/papercomputeco/reel/pkg/client"
	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/credentials"
)

const sessionsLongDesc string = `Manage sessions on the remote agent service.

A session is one conversation with the agent inside a project. Use the
session ID with "reel chat --session <id>".

Examples:
  reel sessions list --project <id>
  reel sessions new --project <id> --title "refactor auth"
  reel sessions rm <session-id>`

const sessionsShortDesc string = "Manage remote sessions"

func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: sessionsShortDesc,
		Long:  sessionsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newRmCmd())

	return cmd
}

// resolveService builds the typed API surface from the viper precedence
// chain and stored credentials. Shared by every subcommand.
func resolveService(cmd *cobra.Command) (*api.Service, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagBaseURL})

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}

	creds, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	apiKey, err := creds.Resolve()
	if err != nil {
		return nil, err
	}

	cl, err := client.New(client.Config{BaseURL: cfg.Client.BaseURL, APIKey: apiKey})
	if err != nil {
		return nil, err
	}

	return api.NewService(cl), nil
}

func newListCmd() *cobra.Command {
	var baseURL, projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions in a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := resolveService(cmd)
			if err != nil {
				return err
			}

			var sessions []api.Session
			err = cliui.Step(os.Stdout, "Fetching sessions", func() error {
				var err error
				sessions, err = svc.ListSessions(context.Background(), projectID)
				return err
			})
			if err != nil {
				return err
			}

			if len(sessions) == 0 {
				fmt.Printf("\n  %s No sessions in this project.\n\n", cliui.DimStyle.Render("●"))
				return nil
			}

			fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render("Sessions"))
			for _, s := range sessions {
				title := s.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Printf("  %s  %s\n",
					cliui.NameStyle.Render(title),
					cliui.DimStyle.Render(s.ID),
				)
			}
			fmt.Println()

			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newNewCmd() *cobra.Command {
	var baseURL, projectID, title, model string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session in a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := resolveService(cmd)
			if err != nil {
				return err
			}

			var session *api.Session
			err = cliui.Step(os.Stdout, "Creating session", func() error {
				var err error
				session, err = svc.CreateSession(context.Background(), projectID, api.CreateSessionRequest{
					Title: title,
					Model: model,
				})
				return err
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n  %s Created session %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(session.ID),
			)
			fmt.Printf("  %s\n\n", cliui.DimStyle.Render("reel chat --session "+session.ID))

			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Session title")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model override for this session")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newRmCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "rm <session-id>",
		Short: "Delete a session and its server-side transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveService(cmd)
			if err != nil {
				return err
			}

			id := args[0]
			err = cliui.Step(os.Stdout, "Deleting session", func() error {
				return svc.DeleteSession(context.Background(), id)
			})
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("no session with ID %q", id)
				}
				return err
			}

			fmt.Printf("\n  %s Deleted %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(id))

			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)

	return cmd
}
