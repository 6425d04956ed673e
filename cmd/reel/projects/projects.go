// Package projectscmder provides the projects command for listing the
// projects known to the remote agent service.
package projectscmder

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

const projectsLongDesc string = `List the projects known to the remote agent service.

Each project is a working directory the agent can run in. Use a project ID
with "reel sessions new" to start a conversation inside it.

Examples:
  reel projects
  reel projects --base-url http://localhost:8417`

const projectsShortDesc string = "List remote projects"

type projectsCommander struct {
	baseURL   string
	configDir string
}

func NewProjectsCmd() *cobra.Command {
	cmder := &projectsCommander{}

	cmd := &cobra.Command{
		Use:   "projects",
		Short: projectsShortDesc,
		Long:  projectsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagBaseURL})

			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			cmder.baseURL = cfg.Client.BaseURL
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)

	return cmd
}

func (c *projectsCommander) run() error {
	svc, err := newService(c.baseURL, c.configDir)
	if err != nil {
		return err
	}

	var projects []api.Project
	err = cliui.Step(os.Stdout, "Fetching projects", func() error {
		var err error
		projects, err = svc.ListProjects(context.Background())
		return err
	})
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		fmt.Printf("\n  %s No projects on the service.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render("Projects"))
	for _, p := range projects {
		fmt.Printf("  %s  %s\n",
			cliui.NameStyle.Render(p.Name),
			cliui.DimStyle.Render(p.ID),
		)
		fmt.Printf("     %s\n", cliui.DimStyle.Render(p.Path))
	}
	fmt.Println()

	return nil
}

// newService builds the typed API surface with resolved credentials.
func newService(baseURL, configDir string) (*api.Service, error) {
	creds, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	apiKey, err := creds.Resolve()
	if err != nil {
		return nil, err
	}

	cl, err := client.New(client.Config{BaseURL: baseURL, APIKey: apiKey})
	if err != nil {
		return nil, err
	}

	return api.NewService(cl), nil
}
