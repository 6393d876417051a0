// File: cmd/crash.go
package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"patrol.module/internal/colors"
	"patrol.module/internal/constants"
	"patrol.module/internal/crash"
	"patrol.module/internal/errors"
	"patrol.module/internal/tui"
)

func newCrashCmd() *cobra.Command {
	loc := &dumpLocation{}

	crashCmd := &cobra.Command{
		Use:   "crash",
		Short: "Inspects the crash dumps left by earlier runs.",
	}
	crashCmd.PersistentFlags().StringVar(&loc.dir, "dir", "", "Dump directory (default: dump_path from the configuration)")
	crashCmd.PersistentFlags().StringVar(&loc.home, "home", "", "Configuration directory")

	crashCmd.AddCommand(newCrashListCmd(loc))
	crashCmd.AddCommand(newCrashShowCmd(loc))
	crashCmd.AddCommand(newCrashCopyCmd(loc))
	crashCmd.AddCommand(newCrashCleanCmd(loc))
	crashCmd.AddCommand(newCrashViewCmd(loc))
	crashCmd.AddCommand(newCrashTestCmd(loc))
	return crashCmd
}

func newCrashListCmd(loc *dumpLocation) *cobra.Command {
	var listJSON bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Shows the crash dumps, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loc.store()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if listJSON {
				if entries == nil {
					entries = []crash.Entry{}
				}
				jsonData, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to generate JSON: %w", err)
				}
				fmt.Fprintln(out, string(jsonData))
				return nil
			}

			if len(entries) == 0 {
				fmt.Fprintf(out, "No crash dumps in %s.\n", store.Dir)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.ID,
					string(e.Kind),
					humanize.Time(e.Time),
					humanize.Bytes(uint64(e.Size)),
					e.Reason,
				})
			}
			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("ID", "KIND", "WHEN", "SIZE", "REASON").
				Rows(rows...)
			fmt.Fprintf(out, "Crash dumps in %s:\n", store.Dir)
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output the list in JSON format.")
	return listCmd
}

func newCrashShowCmd(loc *dumpLocation) *cobra.Command {
	var format string

	showCmd := &cobra.Command{
		Use:   "show <ID>",
		Short: "Prints one crash dump. The ID may be shortened to a unique prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loc.store()
			if err != nil {
				return err
			}
			r, err := store.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch strings.ToLower(format) {
			case constants.FormatText:
				fmt.Fprint(out, r.Text())
			case constants.FormatJSON:
				data, err := json.MarshalIndent(r, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to generate JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))
			case constants.FormatYAML:
				data, err := yaml.Marshal(r)
				if err != nil {
					return fmt.Errorf("failed to generate YAML: %w", err)
				}
				fmt.Fprint(out, string(data))
			default:
				return errors.NewInvalidInputError(format, "format must be one of: text, json, yaml")
			}
			return nil
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", constants.FormatText, "Output format: text, json or yaml")
	return showCmd
}

func newCrashCopyCmd(loc *dumpLocation) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <ID>",
		Short: "Copies a crash report to the clipboard, ready to paste into a bug report.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loc.store()
			if err != nil {
				return err
			}
			r, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if err := clipboard.WriteAll(r.Text()); err != nil {
				return errors.Wrap(errors.CodeInternal, "failed to copy to clipboard", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), colors.For(cmd.OutOrStdout()).Success(fmt.Sprintf("Report %s copied to clipboard.", r.ID)))
			return nil
		},
	}
}

func newCrashCleanCmd(loc *dumpLocation) *cobra.Command {
	var yes bool

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Deletes every crash dump.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loc.store()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No crash dumps in %s.\n", store.Dir)
				return nil
			}
			if !yes && !askForConfirmation(cmd.InOrStdin(), out, fmt.Sprintf("Delete %d crash dump(s) in %s?", len(entries), store.Dir)) {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}

			n, err := store.Clean()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, colors.For(out).Success(fmt.Sprintf("Deleted %d crash dump(s).", n)))
			return nil
		},
	}
	cleanCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cleanCmd
}

func newCrashViewCmd(loc *dumpLocation) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Browses the crash dumps interactively.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loc.store()
			if err != nil {
				return err
			}
			return tui.Run(store)
		},
	}
}

func newCrashTestCmd(loc *dumpLocation) *cobra.Command {
	var runtimeFault bool

	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Crashes on purpose to check that dumps are written.",
		Long: `Installs the crash handler and then crashes.

By default the process panics, which produces a .dump report. With --runtime
it triggers a fatal runtime error instead, which cannot be recovered and is
captured in the .crash file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loc.store()
			if err != nil {
				return err
			}
			h, err := crash.Install(crash.Options{Dir: store.Dir})
			if err != nil {
				return err
			}
			defer h.Recover()

			fmt.Fprintf(cmd.ErrOrStderr(), "Crashing on purpose, dumps go to %s\n", store.Dir)
			if runtimeFault {
				crashRuntime()
			}
			panic(errors.New("crash test requested", false))
		},
	}
	testCmd.Flags().BoolVar(&runtimeFault, "runtime", false, "Trigger a fatal runtime error instead of a panic")
	return testCmd
}

// crashRuntime writes to a map from two goroutines until the runtime aborts
// the process with a fatal error.
func crashRuntime() {
	m := map[int]int{}
	for range 2 {
		go func() {
			for i := 0; ; i++ {
				m[i%64] = i
			}
		}()
	}
	select {}
}
