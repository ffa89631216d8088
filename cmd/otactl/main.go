// Command otactl uploads firmware and configuration to a device running
// otad, reads configuration back and converts configuration files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moffa90/go-tftpota/client"
	"github.com/moffa90/go-tftpota/logging"
	"github.com/moffa90/go-tftpota/progress"
)

var version = "0.1.0"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	device   string
	timeout  time.Duration
	retries  int
	attempts int
	quiet    bool
	logLevel string
}

func (g *globalFlags) logger() *zap.SugaredLogger {
	if g.logLevel == "" {
		return zap.NewNop().Sugar()
	}
	return logging.New(logging.Config{Level: g.logLevel, File: "stderr"})
}

// newClient connects to the device, drawing progress on errOut unless quiet.
func (g *globalFlags) newClient(errOut io.Writer) (*client.Client, error) {
	opts := []client.Option{
		client.WithTimeout(g.timeout),
		client.WithRetries(g.retries),
		client.WithAttempts(g.attempts),
		client.WithLogger(g.logger()),
	}
	if !g.quiet {
		opts = append(opts, client.WithProgress(progress.NewText(errOut, 40), 40))
	}
	return client.New(g.device, opts...)
}

func (g *globalFlags) status(cmd *cobra.Command, format string, args ...interface{}) {
	if !g.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "otactl",
		Short:         "Field update tool",
		Long:          `otactl talks to a device running otad over TFTP: it flashes firmware, pushes and pulls configuration and converts configuration files between YAML and binary form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.device, "device", "d", client.DefaultAddr, "device address (host:port)")
	pf.DurationVar(&g.timeout, "timeout", 5*time.Second, "per-packet timeout")
	pf.IntVar(&g.retries, "retries", 10, "packet retransmissions before a transfer fails")
	pf.IntVar(&g.attempts, "attempts", 3, "transfer attempts before giving up")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "suppress progress output")
	pf.StringVar(&g.logLevel, "log-level", "", "log transfers to stderr at this level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newFlashCmd(g),
		newPushCmd(g),
		newPullCmd(g),
		newBackupCmd(g),
		newRestoreCmd(g),
		newConvertCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "otactl v%s\n", version)
			},
		},
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
