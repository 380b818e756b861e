package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sidongo"
	"github.com/hupe1980/sidongo/store"
	"github.com/hupe1980/sidongo/subsetsum"
)

func newSolveCmd(flags *rootFlags) *cobra.Command {
	var (
		findAll   bool
		firstOnly bool
		iterative bool
		bound     uint64
	)

	cmd := &cobra.Command{
		Use:   "solve <n>",
		Short: "Solve for a single set size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil {
				return fmt.Errorf("invalid n %q", args[0])
			}

			st, err := flags.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			mode := subsetsum.ModeAuto
			if iterative {
				mode = subsetsum.ModeIterative
			}

			s := sidongo.New(
				sidongo.WithStore(st),
				sidongo.WithLogger(flags.logger()),
				sidongo.WithMode(mode),
				sidongo.WithInitialBound(bound),
				sidongo.WithFirstOnly(firstOnly),
			)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if findAll {
				result, sets, err := s.SolveAll(ctx, n)
				if err != nil {
					return err
				}
				printResult(&result)
				fmt.Printf("optimal sets (%d):\n", len(sets))
				for _, set := range sets {
					fmt.Printf("  %s\n", store.SetKey(set))
				}
				return nil
			}

			result, err := s.Solve(ctx, n)
			if err != nil {
				return err
			}
			printResult(&result)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&findAll, "all", "a", false, "enumerate all optimal sets")
	cmd.Flags().BoolVarP(&firstOnly, "first-only", "f", false, "stop at the first solution")
	cmd.Flags().BoolVar(&iterative, "iterative", false, "force the low-memory iterative mode")
	cmd.Flags().Uint64Var(&bound, "bound", 0, "initial upper bound (0 = 2^(n-1)+1)")

	return cmd
}
