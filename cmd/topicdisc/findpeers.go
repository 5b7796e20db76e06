package main

import (
	"time"

	"github.com/brendoncarroll/go-topicdisc/discover"
	"github.com/brendoncarroll/go-topicdisc/iteration"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	findPeersCmd.Flags().String("enr", "", "bootstrap node record")
	findPeersCmd.Flags().Int("repetitions", -1, "number of lookups, negative for forever")
	findPeersCmd.Flags().Duration("break-time", 5*time.Second, "time between lookups")
}

var findPeersCmd = &cobra.Command{
	Use:   "find-peers",
	Short: "Look up random targets to discover peers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		enr, _ := flags.GetString("enr")
		reps, _ := flags.GetInt("repetitions")
		breakTime, _ := flags.GetDuration("break-time")

		ctx := cmd.Context()
		n, err := setup(ctx)
		if err != nil {
			return err
		}
		defer n.Close()
		boot, err := n.bootstrap(enr)
		if err != nil {
			return err
		}
		if boot != nil {
			discover.AddBootstrap(n.engine, *boot, log)
		}
		stats, err := discover.New(discover.Params{
			Engine: n.engine,
			Policy: iteration.FromCount(reps),
			Delay:  breakTime,
			Log:    log,
		}).Run(ctx)
		log.WithFields(logrus.Fields{
			"cycles":     stats.Cycles,
			"failures":   stats.Failures,
			"discovered": stats.Discovered,
		}).Info("peer search finished")
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}
