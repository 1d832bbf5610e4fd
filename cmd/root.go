package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithApp(newApp())
}

func newRootCmdWithApp(app *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "jcblock",
		Short:         "Junk call blocker: screen incoming calls through a Caller-ID modem",
		Long:          "jcblock watches a voice modem for Caller-ID data, hangs up on callers matching the block list, lets allow-listed callers through, and adds a caller to the block list when \"*\" is pressed on a handset while the phone rings.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsWiring(cmd) {
				return nil
			}
			return app.wire(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "config file (default is $HOME/.config/jcblock/config.toml)")
	flags.StringVar(&app.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides logging.level)")
	flags.StringVar(&app.logFormat, "log-format", "", "log format: text or json (overrides logging.format)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newListCmd(app),
		newPurgeCmd(app),
		newCallsCmd(app),
		newConfigCmd(app),
	)

	return rootCmd
}

// skipsWiring reports commands that must work without a valid config.
func skipsWiring(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoWire] == "true" {
			return true
		}
	}
	return false
}

const annotationNoWire = "jcblock/no-wire"
