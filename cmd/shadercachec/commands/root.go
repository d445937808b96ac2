// Package commands implements the CLI commands for shadercachec.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/shadercache"
)

// CLI is the shadercachec command line interface.
type CLI struct {
	rootCmd *cobra.Command
}

// New creates the CLI.
func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "shadercachec",
		Short:         "Prebuild and inspect shader compilation caches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			shadercache.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})))
		},
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	c := &CLI{rootCmd: rootCmd}
	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newInspectCmd())
	rootCmd.AddCommand(c.newHashCmd())
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
