package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/config"
	"github.com/spf13/cobra"
)

var (
	log = topicdisc.Logger
	cfg = config.Default()
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func init() {
	cfg.BindFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(hashesCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(regCmd)
	rootCmd.AddCommand(findPeersCmd)
	rootCmd.AddCommand(nodeRecordCmd)
}

var rootCmd = &cobra.Command{
	Use:          "topicdisc",
	Short:        "Topic advertisement and discovery on a Kademlia DHT",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.LogLevel != "" {
			return topicdisc.SetLogLevel(cfg.LogLevel)
		}
		return nil
	},
}
