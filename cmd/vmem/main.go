// The vmem command exercises the virtual-memory core: it builds memory
// spaces, runs paging workloads, and records or serves their state.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vmem",
	Short: "vmem runs paging workloads on a simulated physical memory.",
	Long: `vmem builds page tables and memory spaces over a simulated ` +
		`physical memory, runs mmap/brk/fork workloads on them, and can ` +
		`record the resulting paging events or serve the live state over HTTP.`,
}

func main() {
	// A .env file can preset the flags' default values.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// envOr reads an environment variable, falling back to def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
