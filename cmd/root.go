// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"patrol.module/internal/app"
	"patrol.module/internal/terminal"
)

// Version is set at build time with -ldflags "-X patrol.module/cmd.Version=...".
var Version = "dev"

// NewRootCmd builds the patrol command tree. The root command parses its
// own startup options, so cobra flag parsing is switched off for it.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:                "patrol [options]",
		Short:              "Edit review client.",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		DisableAutoGenTag:  true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := terminal.NewParser(args, cmd.OutOrStdout())
			p.Version = Version
			p.Footer = commandsFooter(cmd)
			if p.Init() || p.Parse() {
				return nil
			}

			a, err := app.New(cmd.Context(), p, app.Options{
				Stdout:       cmd.OutOrStdout(),
				Stderr:       cmd.ErrOrStderr(),
				Version:      Version,
				WatchSignals: true,
			})
			if err != nil {
				return err
			}
			defer a.Crash().Recover()
			return a.Run()
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(newCrashCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command line and returns the first error.
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func commandsFooter(root *cobra.Command) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, c := range root.Commands() {
		if !c.IsAvailableCommand() {
			continue
		}
		fmt.Fprintf(&b, "  %-8s %s\n", c.Name(), c.Short)
	}
	b.WriteString("\nRun 'patrol <command> --help' for more about a command.\n")
	return b.String()
}
