package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"jarvis/cmd/jarvis/chat"
)

// chatCmd starts the interactive console
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the router from the terminal",
	Long: `Opens an interactive console. Every line is routed exactly like a
WhatsApp message from the --from sender, so conversation context such as
"guárdala" works across lines.`,
	RunE: runChat,
}

var chatFrom string

func init() {
	chatCmd.Flags().StringVar(&chatFrom, "from", "console", "Sender id used for conversation context")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := buildApp(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(chat.New(a.router, chatFrom, cfg.GetProviderTimeout()*3), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	return nil
}
