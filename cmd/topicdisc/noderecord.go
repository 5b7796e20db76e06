package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	nodeRecordCmd.Flags().Bool("sim", false, "also print the records of the simulated nodes")
}

var nodeRecordCmd = &cobra.Command{
	Use:   "node-record",
	Short: "Print the local node record in text form",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		withSim, _ := cmd.Flags().GetBool("sim")
		n, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer n.Close()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, n.engine.LocalNode().Text())
		if withSim {
			for _, rec := range n.net.Records() {
				if rec.ID == n.engine.LocalNode().ID {
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", rec.UDPAddr(), rec.Text())
			}
		}
		return nil
	},
}
