package main

import (
	"fmt"

	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/spf13/cobra"
)

var hashesCmd = &cobra.Command{
	Use:   "hashes <topic>",
	Short: "Print the digest of a topic under each configured hash function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hasher, err := cfg.Hasher()
		if err != nil {
			return err
		}
		for _, h := range hasher.Digests(topic.Topic(args[0])) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%v\n", h.Func, h.Digest)
		}
		return nil
	},
}
