package main

import (
	"fmt"

	"github.com/brendoncarroll/go-topicdisc/advertise"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	queryCmd.Flags().String("enr", "", "bootstrap node record")
	queryCmd.Flags().Int("rounds", 1, "number of query rounds")
	queryCmd.Flags().Bool("forever", false, "query until interrupted")
	queryCmd.Flags().Bool("name", false, "treat the argument as a topic name instead of a digest")
	queryCmd.Flags().Duration("round-delay", advertise.DefaultParams().RoundDelay, "time between query rounds")
}

var queryCmd = &cobra.Command{
	Use:   "topic-query <topic-hash>",
	Short: "Find the nodes advertising a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		enr, _ := flags.GetString("enr")
		rounds, _ := flags.GetInt("rounds")
		forever, _ := flags.GetBool("forever")
		byName, _ := flags.GetBool("name")
		roundDelay, _ := flags.GetDuration("round-delay")

		var d topic.Digest
		if byName {
			hasher, err := cfg.Hasher()
			if err != nil {
				return err
			}
			d = hasher.Digest(topic.Topic(args[0])).Digest
		} else {
			var err error
			if d, err = topic.ParseDigest(args[0]); err != nil {
				return err
			}
		}
		if rounds < 1 {
			return errors.Errorf("--rounds must be positive, have %d", rounds)
		}
		if forever {
			rounds = -1
		}

		n, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer n.Close()
		params, err := n.params(enr)
		if err != nil {
			return err
		}
		params.Rounds = rounds
		params.RoundDelay = roundDelay

		res, err := advertise.NewQueryer(n.engine, params).Run(cmd.Context(), d)
		if err != nil && cmd.Context().Err() == nil {
			return err
		}
		if res == nil {
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Ads found for %v: %d\n", res.Digest, len(res.Ads))
		for _, ad := range res.Ads {
			fmt.Fprintln(out, ad.Node.Text())
		}
		return nil
	},
}
