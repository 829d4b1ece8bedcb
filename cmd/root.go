// Package cmd wires the cobra entrypoint: a single command, no
// subcommands or flags, fully configured from the environment per
// spec.md §6.
package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ctsentinel/internal/config"
	"ctsentinel/internal/supervisor"
)

var rootCmd = &cobra.Command{
	Use:   "ctsentinel",
	Short: "Observe newly issued domains from the certificate transparency firehose",
	Long: `ctsentinel subscribes to the certificate transparency firehose, filters and
deduplicates newly issued domains, enriches them with DNS-over-HTTPS
lookups, and persists the results to a relational registry, optionally
publishing each enriched record to a message bus.`,
	RunE: run,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup, err := supervisor.New(ctx, cfg)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("ctsentinel: received shutdown signal, stopping pipeline...")
		cancel()
	}()

	log.Println("ctsentinel: pipeline started, press Ctrl+C to stop")
	return sup.Run(ctx)
}
