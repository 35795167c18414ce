package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

// app holds the state shared by every command.
type app struct {
	viper  *viper.Viper
	stdout io.Writer
	stderr io.Writer

	// newClient builds the client once settings are known
	newClient func(ctx context.Context, opts ...s3types.Option) (*s3bridge.Client, error)

	client *s3bridge.Client
}

func newApp() *app {
	return &app{
		viper:     viper.New(),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		newClient: s3bridge.New,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "s3bridge",
		Short:         "Work with objects in S3-compatible storage",
		Long:          `Read, copy, move, list and delete objects in S3-compatible storage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(a.viper, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger, err := s.logger()
			if err != nil {
				return err
			}
			a.client, err = a.newClient(cmd.Context(), s.options(logger)...)
			return err
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	addSettingsFlags(root.PersistentFlags())

	root.AddCommand(
		newGetCmd(a),
		newCopyCmd(a),
		newMoveCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
	)
	return root
}

// execute runs the command line in args, prints any error and closes the
// client.
func execute(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if a.client != nil {
		if cerr := a.client.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		root.PrintErrln("Error:", err)
	}
	return err
}
