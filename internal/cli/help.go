package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

func writeHelp(w io.Writer) {
	fmt.Fprint(w, `q2-fmt: engraftment analyses for longitudinal microbiome studies

Usage:
  q2-fmt <command> [options]

Commands:
`)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commands() {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.summary)
	}
	fmt.Fprintf(tw, "  %s\t%s\n", "help", "Show help for a command.")
	_ = tw.Flush()
	fmt.Fprint(w, `
Configuration is read from $FMT_CONFIG (YAML) and FMT_* environment
variables, e.g. FMT_LOG_LEVEL, FMT_ALPHA_POLICY, FMT_BLOB_DRIVER.

Run 'q2-fmt help <command>' for the options of one command.
`)
}

func runHelp(stdout, stderr io.Writer, args []string) int {
	if len(args) == 0 {
		writeHelp(stdout)
		return ExitOK
	}
	for _, c := range commands() {
		if c.name == args[0] {
			e := &env{stdout: stdout, stderr: stdout}
			// -h returns from flag parsing before any service is touched
			_ = c.run(context.Background(), e, []string{"-h"})
			return ExitOK
		}
	}
	fmt.Fprintf(stderr, "unknown command %q\n", args[0])
	return ExitUsage
}
