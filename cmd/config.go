// File: cmd/config.go
package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"patrol.module/internal/colors"
	"patrol.module/internal/config"
	"patrol.module/internal/errors"
)

func newConfigCmd() *cobra.Command {
	var home string

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manages the application settings.",
	}
	configCmd.PersistentFlags().StringVar(&home, "home", "", "Configuration directory")

	configSetCmd := &cobra.Command{
		Use:   "set <KEY> <VALUE>",
		Short: "Sets a value for a configuration key.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])
			if !knownKey(key) {
				return errors.NewInvalidInputError(args[0], "unknown configuration key, expected one of: "+strings.Join(config.Keys(), ", "))
			}

			loader := config.NewLoader(home, false)
			if _, err := loader.Load(); err != nil {
				return errors.NewConfigLoadError(loader.Home(), err)
			}
			loader.Set(key, parseValue(args[1]))
			cfg, err := loader.Load()
			if err != nil {
				return errors.NewConfigLoadError(loader.Home(), err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := loader.Save(); err != nil {
				return errors.NewConfigSaveError(loader.Home(), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), colors.For(cmd.OutOrStdout()).Success(fmt.Sprintf("Configuration updated: %s = %s", key, args[1])))
			return nil
		},
	}

	configGetCmd := &cobra.Command{
		Use:   "get [KEY]",
		Short: "Shows the value of a configuration key, or all of them.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(home, false)
			if _, err := loader.Load(); err != nil {
				return errors.NewConfigLoadError(loader.Home(), err)
			}

			keys := config.Keys()
			if len(args) == 1 {
				key := strings.ToLower(args[0])
				if !knownKey(key) || !loader.IsSet(key) {
					return errors.NewInvalidInputError(args[0], "key not found in configuration")
				}
				keys = []string{key}
			}
			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", key, loader.Get(key))
			}
			return nil
		},
	}

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	return configCmd
}

func knownKey(key string) bool {
	return slices.Contains(config.Keys(), key)
}

// parseValue keeps numbers and booleans typed in the saved file.
func parseValue(s string) interface{} {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
