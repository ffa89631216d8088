// Command otad is the device side of field updates: it accepts firmware and
// configuration transfers over TFTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-tftpota/record"
	"github.com/moffa90/go-tftpota/settings"
	"github.com/moffa90/go-tftpota/store"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "otad",
		Short:         "Field update daemon",
		Long:          `otad receives firmware images and configuration records over TFTP and applies them to the device.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is /etc/otad/otad.yaml)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Load(cfgFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return newDaemon(s, cmd.OutOrStdout()).run(ctx)
		},
	}

	showConfigCmd := &cobra.Command{
		Use:   "show-config",
		Short: "Print the daemon settings and the active configuration record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Load(cfgFile)
			if err != nil {
				return err
			}
			s.Validate()

			out := cmd.OutOrStdout()
			settingsYAML, err := yaml.Marshal(s)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "# settings\n%s", settingsYAML)

			st := store.New(store.NewFileBackend(s.ConfigPartition))
			if err := st.Load(); err != nil {
				fmt.Fprintf(out, "# configuration record\n# none: %v\n", err)
				return nil
			}
			cfg, _ := st.ActiveConfig()
			text, err := record.MarshalYAML(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "# configuration record (version %d)\n%s", cfg.Version, text)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "otad v%s\n", version)
		},
	}

	rootCmd.AddCommand(runCmd, showConfigCmd, versionCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
