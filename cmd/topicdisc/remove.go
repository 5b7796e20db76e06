package main

import (
	"github.com/brendoncarroll/go-topicdisc/advertise"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove-topic <topic>",
	Short: "Stop republishing a topic registered by this process",
	Long: `Stop republishing a topic registered by this process.

Every invocation runs a fresh node on a fresh simulated network, so a topic
registered by an earlier reg-topic run is not found.  The failure is logged
and the command exits zero.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer n.Close()
		// failures are logged by Remove
		advertise.Remove(n.engine, topic.Topic(args[0]), log)
		return nil
	},
}
