package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦╔╦╗╦ ╦
  ╚╗╔╝ ║║╔╩╦╝
   ╚╝ ═╩╝╩ ╚═
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "vdx",
		Short: "Server-driven reactive UI for Go",
		Long: `VDX renders components on the server and streams DOM patches
to a thin client over WebSocket.

  • Fine-grained reactive state with automatic dependency tracking
  • Batched effect flushing with loop protection
  • Keyed virtual DOM diffing
  • Prometheus metrics and optional tracing built in`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		benchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the VDX ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("\033[36m→\033[0m %s\n", fmt.Sprintf(format, args...))
}
