// Package reelcmder
package reelcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/reel/cmd/reel/auth"
	chatcmder "github.com/papercomputeco/reel/cmd/reel/chat"
	configcmder "github.com/papercomputeco/reel/cmd/reel/config"
	mockcmder "github.com/papercomputeco/reel/cmd/reel/mock"
	projectscmder "github.com/papercomputeco/reel/cmd/reel/projects"
	sessionscmder "github.com/papercomputeco/reel/cmd/reel/sessions"
	versioncmder "github.com/papercomputeco/reel/cmd/version"
)

const reelLongDesc string = `Reel is a terminal client for a remote coding-agent service.

Chat with the agent from your terminal:
  reel chat --session <id>    Stream a conversation
  reel projects               List remote projects
  reel sessions               Manage remote sessions

Run "reel auth" first to store your API key.`

const reelShortDesc string = "Reel - terminal client for a remote coding agent"

func NewReelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reel",
		Short: reelShortDesc,
		Long:  reelLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .reel/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(projectscmder.NewProjectsCmd())
	cmd.AddCommand(sessionscmder.NewSessionsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(mockcmder.NewMockCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
