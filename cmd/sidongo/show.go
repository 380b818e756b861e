package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sidongo/store"
)

func newShowCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [n]",
		Short: "Show stored results, for one size or all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := flags.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()

			if len(args) == 1 {
				var n int
				if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil {
					return fmt.Errorf("invalid n %q", args[0])
				}

				result, err := st.Result(ctx, n)
				if errors.Is(err, store.ErrNotFound) {
					fmt.Printf("N=%d: no stored result\n", n)
					return nil
				}
				if err != nil {
					return err
				}
				printResult(result)

				sets, err := st.OptimalSets(ctx, n)
				if err == nil {
					fmt.Printf("optimal sets (%d):\n", len(sets))
					for _, set := range sets {
						fmt.Printf("  %s\n", store.SetKey(set))
					}
				}
				return nil
			}

			results, err := st.Results(ctx)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("no stored results")
				return nil
			}
			for i := range results {
				printResult(&results[i])
			}
			return nil
		},
	}

	return cmd
}
