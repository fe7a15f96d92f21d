package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/asmavensocial/installation-dashbaord/cmd/serve"
	"github.com/asmavensocial/installation-dashbaord/cmd/validate"
	"github.com/asmavensocial/installation-dashbaord/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "installation-dashbaord",
		Short: "Store branding installation survey dashboard",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	serveCmd := serve.Command(settings)
	validateCmd := validate.Command(settings)

	subcommands := []*cobra.Command{
		serveCmd,
		validateCmd,
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Parse the command line flags
		if err := cmd.Flags().Parse(args); err != nil {
			return err
		}

		// Sync the settings struct with viper so command-line arguments take precedence
		return viper.Unmarshal(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.StringVar(&settings.Source.Spreadsheet, "spreadsheet", viper.GetString("source.spreadsheet"), "Path to the survey response workbook (.xlsx)")
	flags.StringVar(&settings.Source.Sheet, "sheet", viper.GetString("source.sheet"), "Sheet name to read, defaults to the first sheet")

	// Each flag binds to its full nested config key; binding by flag name
	// alone would leave viper.Unmarshal reading the config-file value and
	// clobbering whatever the flag set.
	bindings := map[string]string{
		"debug":       "debug",
		"spreadsheet": "source.spreadsheet",
		"sheet":       "source.sheet",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding %s flag: %w", flag, err)
		}
	}

	return nil
}
