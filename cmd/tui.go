package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"halmon/internal/logger"
	"halmon/internal/ui/app"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive monitor (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI()
		},
	}
}

func runTUI() error {
	if err := initLogger(true); err != nil {
		return err
	}

	a, err := newApp(cfg, cfg.Server.Enabled)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Server.Enabled {
		srv, err := a.startHTTP()
		if err != nil {
			return err
		}
		defer a.stopHTTP(srv)
	}

	p := tea.NewProgram(app.New(a.monitor), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Errorf("[TUI] %v", err)
		return err
	}
	return nil
}
