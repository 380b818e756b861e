// Command sidongo searches for Sidon/B₁ sets of given sizes and keeps
// the results in a durable store.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
