package main

import (
	"time"

	"github.com/brendoncarroll/go-topicdisc/advertise"
	"github.com/brendoncarroll/go-topicdisc/iteration"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/spf13/cobra"
)

func init() {
	regCmd.Flags().String("enr", "", "bootstrap node record")
	regCmd.Flags().Duration("poll-interval", advertise.DefaultParams().PollInterval, "time between active topic polls")
	regCmd.Flags().Int("polls", -1, "number of active topic polls, negative for forever")
	regCmd.Flags().Duration("republish-interval", 5*time.Minute, "time between re-registrations of the topic")
}

var regCmd = &cobra.Command{
	Use:   "reg-topic <topic>",
	Short: "Advertise a topic and report which nodes hold the advertisement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		enr, _ := flags.GetString("enr")
		pollInterval, _ := flags.GetDuration("poll-interval")
		polls, _ := flags.GetInt("polls")
		republish, _ := flags.GetDuration("republish-interval")

		ctx := cmd.Context()
		n, err := setup(ctx)
		if err != nil {
			return err
		}
		defer n.Close()
		params, err := n.params(enr)
		if err != nil {
			return err
		}
		params.PollInterval = pollInterval
		params.PollPolicy = iteration.FromCount(polls)

		if republish > 0 {
			go n.engine.RunRepublisher(ctx, republish)
		}
		if err := advertise.NewAdvertiser(n.engine, params).Run(ctx, topic.Topic(args[0])); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}
