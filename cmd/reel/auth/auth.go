// Package authcmder provides the auth command for storing the agent-service
// API key.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/credentials"
)

const authLongDesc string = `Store the API key for the remote agent service.

The key is stored in credentials.toml in the .reel/ directory with 0600
permissions. The ` + credentials.EnvAPIKey + ` environment variable, when
set, overrides the stored key.

Examples:
  reel auth                 Prompt for the API key (hidden input)
  reel auth --status        Show whether a key is configured
  reel auth --remove        Remove the stored key
  echo $KEY | reel auth     Pipe the API key from stdin`

const authShortDesc string = "Store the agent service API key"

func NewAuthCmd() *cobra.Command {
	var statusFlag bool
	var removeFlag bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			switch {
			case statusFlag:
				return runStatus(configDir)
			case removeFlag:
				return runRemove(configDir)
			default:
				return runAuth(configDir)
			}
		},
	}

	cmd.Flags().BoolVar(&statusFlag, "status", false, "Show whether a key is configured")
	cmd.Flags().BoolVar(&removeFlag, "remove", false, "Remove the stored key")

	return cmd
}

func runAuth(configDir string) error {
	apiKey, err := readAPIKey()
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(apiKey); err != nil {
		return err
	}

	fmt.Printf("\n  %s Stored API key %s\n\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)

	return nil
}

func runStatus(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if envKey := os.Getenv(credentials.EnvAPIKey); envKey != "" {
		fmt.Printf("\n  %s Using %s from the environment.\n\n",
			cliui.SuccessMark, cliui.NameStyle.Render(credentials.EnvAPIKey))
		return nil
	}

	key, err := mgr.GetKey()
	if err != nil {
		return err
	}

	if key == "" {
		fmt.Printf("\n  %s No API key configured.\n", cliui.DimStyle.Render("●"))
		fmt.Printf("  Use 'reel auth' to store one.\n\n")
		return nil
	}

	fmt.Printf("\n  %s API key configured %s\n\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)

	return nil
}

func runRemove(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(); err != nil {
		return err
	}

	fmt.Printf("\n  %s Removed stored API key.\n\n", cliui.SuccessMark)

	return nil
}

// readAPIKey reads an API key from stdin. If stdin is a pipe, it reads the
// first line. Otherwise, it prompts interactively with hidden input.
func readAPIKey() (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// Piped input
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	// Interactive terminal
	fmt.Print("Enter API key: ")

	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}

	return string(keyBytes), nil
}
