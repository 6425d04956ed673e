// Package mockcmder provides the mock command for running a local stand-in
// for the remote agent service.
package mockcmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/mockserver"
)

const mockLongDesc string = `Run a local mock of the remote agent service.

The mock serves the projects, sessions, and MCP endpoints from in-memory
state and streams canned replies over SSE, so the other reel commands can
be exercised without a real backend. It comes pre-seeded with one project.

Examples:
  reel mock
  reel mock --listen :9000
  reel chat --session <id> --base-url http://localhost:8417`

const mockShortDesc string = "Run a local mock agent service"

// chunkDelay paces streamed replies so streaming is visible at a terminal.
const chunkDelay = 40 * time.Millisecond

type mockCommander struct {
	listenAddr string
	debug      bool
}

func NewMockCmd() *cobra.Command {
	cmder := &mockCommander{}

	cmd := &cobra.Command{
		Use:   "mock",
		Short: mockShortDesc,
		Long:  mockLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagMockListen})

			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			cmder.listenAddr = cfg.Mock.Listen
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

	config.AddStringFlag(cmd, config.Flags, config.FlagMockListen, &cmder.listenAddr)

	return cmd
}

func (c *mockCommander) run() error {
	log := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	srv := mockserver.NewServer(mockserver.Config{
		ListenAddr: c.listenAddr,
		ChunkDelay: chunkDelay,
		Logger:     log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	fmt.Println()
	fmt.Printf("  %s Mock agent service listening on %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(c.listenAddr),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Ctrl+C to stop."))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	log.Info("shutting down mock service")
	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return nil
}
