package cmd

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

type globalOptions struct {
	configFile string
	seed       uint64
	seedSet    bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	app := &app{}
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "chatsim",
		Short:         "chatsim: simulate persona group chats backed by a local model",
		Long:          "chatsim runs a roster of personas that talk to you and to each other. Group conversations pick speakers by talkativeness, stream replies from an Ollama server and deliver them at a human pace.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			return app.wire(*opts)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			app.sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default ~/.config/chatsim/config.toml)")
	flags.Uint64Var(&opts.seed, "seed", 0, "Fixed random seed for reproducible speaker selection and pacing")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides log.level)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newPersonasCmd(app),
		newSayCmd(app),
		newRunCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
