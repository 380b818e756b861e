package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := flags.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println("Store statistics:")
			fmt.Printf("  total results:          %d\n", stats.TotalResults)
			fmt.Printf("  optimal results:        %d\n", stats.OptimalResults)
			fmt.Printf("  max n solved:           %d\n", stats.MaxNSolved)
			fmt.Printf("  total computation time: %s\n", stats.TotalComputationTime)
			return nil
		},
	}

	return cmd
}
