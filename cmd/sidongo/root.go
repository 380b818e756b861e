package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sidongo"
	"github.com/hupe1980/sidongo/codec"
	"github.com/hupe1980/sidongo/store"
	"github.com/hupe1980/sidongo/store/badgerstore"
)

type rootFlags struct {
	storeKind string
	dbPath    string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "sidongo",
		Short: "Search for Sidon/B₁ sets minimising the maximum element",
		Long: `sidongo searches for sets of N distinct positive integers in which
every nonempty subset has a distinct sum, minimising the maximum
element for each N. Solved sizes are persisted and skipped on re-run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.storeKind, "store", "badger", "result store backend (badger|local|memory)")
	cmd.PersistentFlags().StringVarP(&flags.dbPath, "db", "d", "sidongo_results", "path of the result store")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(
		newSolveCmd(flags),
		newRangeCmd(flags),
		newShowCmd(flags),
		newStatsCmd(flags),
	)

	return cmd
}

func (f *rootFlags) logger() *sidongo.Logger {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	return sidongo.NewTextLogger(level)
}

func (f *rootFlags) openStore() (store.Store, error) {
	switch f.storeKind {
	case "badger":
		return badgerstore.Open(f.dbPath, badgerstore.Options{
			SyncWrites: true,
			Logger:     f.logger().Logger,
		})
	case "local":
		return store.OpenLocal(f.dbPath, codec.Default)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", f.storeKind)
	}
}

func printResult(result *sidongo.Result) {
	fmt.Printf("N=%d: %s", result.N, result.Status)
	if len(result.Set) > 0 {
		fmt.Printf("  max=%d  set=%s", result.MaxValue, store.SetKey(result.Set))
	}
	fmt.Printf("  nodes=%d  time=%s\n", result.NodesExplored, result.ComputationTime)
}
