package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// askCmd routes a single message and prints the reply
var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Route one message and print the reply",
	Long: `Routes a message exactly as the webhook would and prints the reply.

Examples:
  jarvis ask idea comprar pan
  jarvis ask "qué tiempo hace en Madrid"
  jarvis ask --from whatsapp:+34600000000 guárdala`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var askFrom string

func init() {
	askCmd.Flags().StringVar(&askFrom, "from", "cli", "Sender id used for conversation context")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetProviderTimeout()*3)
	defer cancel()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	text := joinArgs(args)
	logger.Debug("routing", zap.String("from", askFrom), zap.String("text", text))
	fmt.Fprintln(cmd.OutOrStdout(), a.router.Route(ctx, askFrom, text))
	return nil
}
