package cmd

import (
	"strings"

	"github.com/foomo/keel/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewRootCommand represents the base command when called without any subcommands
func NewRootCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:           "gitdb",
		Short:         "JSON record store with a git snapshot per change",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zap.ReplaceGlobals(log.NewLogger(
				logLevelFlag(v),
				logFormatFlag(v),
			))
		},
	}

	flags := cmd.PersistentFlags()
	addLogLevelFlag(flags, v)
	addLogFormatFlag(flags, v)
	addRepoFlag(flags, v)
	addEngineFlag(flags, v)
	addBlobBucketFlag(flags, v)
	addBlobPrefixFlag(flags, v)
	addAuthorNameFlag(flags, v)
	addAuthorEmailFlag(flags, v)

	cmd.AddCommand(
		NewCreateCommand(v),
		NewReadCommand(v),
		NewUpdateCommand(v),
		NewPatchCommand(v),
		NewDeleteCommand(v),
		NewListCommand(v),
		NewLogCommand(v),
		NewDiffCommand(v),
		NewHeadCommand(v),
		NewServeCommand(v),
		NewVersionCommand(),
	)

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Logger().Fatal("failed to run command", zap.Error(err))
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}
