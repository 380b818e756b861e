package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sidongo"
)

func newRangeCmd(flags *rootFlags) *cobra.Command {
	var (
		startN    int
		maxN      int
		workers   int
		findAll   bool
		firstOnly bool
	)

	cmd := &cobra.Command{
		Use:   "range",
		Short: "Solve a range of set sizes across a worker pool",
		Long: `Solve every size from --start-n to --max-n, running up to --workers
searches concurrently. With --start-n 0, the run resumes after the
largest size already solved in the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := flags.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			s := sidongo.New(
				sidongo.WithStore(st),
				sidongo.WithLogger(flags.logger()),
				sidongo.WithFindAllOptimal(findAll),
				sidongo.WithFirstOnly(firstOnly),
			)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return s.SolveRange(ctx, startN, maxN, workers)
		},
	}

	cmd.Flags().IntVarP(&startN, "start-n", "s", 0, "first size (0 = resume from the store)")
	cmd.Flags().IntVarP(&maxN, "max-n", "m", 20, "last size, inclusive")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "concurrent searches")
	cmd.Flags().BoolVarP(&findAll, "all", "a", false, "enumerate all optimal sets")
	cmd.Flags().BoolVarP(&firstOnly, "first-only", "f", false, "stop each search at the first solution")

	return cmd
}
