// Command csvingest is the CLI wrapper around the ingest package, shaped
// after the teacher's boldkit/cmd dispatch: a hand-rolled Execute(args)
// switch over the standard library flag package, no Cobra, no Viper.
package main

import (
	"fmt"
	"os"
)

func main() {
	Execute(os.Args[1:])
}

// Execute dispatches to a subcommand, mirroring boldkit/cmd/root.go.
func Execute(args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "infer":
		runInfer(args[1:])
	case "inspect":
		runInspect(args[1:])
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "csvingest - CSV/TSV/fixed-width columnar ingestion")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  csvingest <command> [options]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  infer      Ingest a file, report each column's elected type and row count")
	fmt.Fprintln(os.Stderr, "  inspect    Print header names and the resolved parser hierarchy, no data read")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Run 'csvingest <command> -h' for command-specific options.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
