// Package sidongo searches for Sidon/B₁ sets: sets of N distinct
// positive integers whose nonempty subsets all have distinct sums.
// For each N it looks for a set minimising the maximum element, a
// classical problem related to the Erdős–Turán conjecture.
//
// # Quick Start
//
//	ctx := context.Background()
//	s := sidongo.New()
//	result, _ := s.Solve(ctx, 4)
//	fmt.Println(result.Set, result.MaxValue) // [3 5 6 7] 7
//
// With durable persistence (solved sizes are skipped on re-run):
//
//	st, _ := badgerstore.Open("./results", badgerstore.Options{})
//	s := sidongo.New(sidongo.WithStore(st))
//	_ = s.SolveRange(ctx, 0, 20, 4) // resume, 4 workers
//
// # Architecture
//
// The core is the coupled pair of an incremental subset-sum manager
// (package subsetsum), which maintains all subset sums under element
// push/pop with exact rollback, and a branch-and-bound search
// (package search) driving it with dynamic upper-bound pruning.
//
// Everything else is plumbing around that pair:
//
//   - store: persistence of (n → best set) records. Backends for
//     memory, a local journal+snapshot directory, BadgerDB, S3 (with
//     an optional DynamoDB solved index) and MinIO.
//   - runner: a worker pool farming independent N values.
//   - cmd/sidongo: the CLI shell.
//
// # Modes
//
// Fast mode stores all 2^n-1 nonempty subset sums in a hash set, giving O(|S|)
// pushes; it is the default below n=25. Iterative mode re-enumerates
// subsets per push in O(n·4^n) time but O(n) memory, for large n
// (capped at 62 elements).
//
// # Cancellation
//
// Searches observe a shared atomic stop flag at every node; context
// cancellation is wired into it. Interrupted searches report
// StatusInterrupted with their state fully unwound.
package sidongo
