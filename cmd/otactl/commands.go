package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-tftpota/client"
	"github.com/moffa90/go-tftpota/fwimage"
	"github.com/moffa90/go-tftpota/record"
	"github.com/moffa90/go-tftpota/store"
)

func newFlashCmd(g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "flash <firmware.bin>",
		Short: "Upload a firmware image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if !force {
				img, err := fwimage.ParseBytes(data)
				if err != nil {
					return fmt.Errorf("%s: %w (use --force to upload anyway)", args[0], err)
				}
				g.status(cmd, "Image: %d segments, entry 0x%08X, %d bytes", len(img.Segments), img.Header.EntryAddr, img.Size)
			}

			c, err := g.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := c.Push(cmd.Context(), client.FirmwareName, data); err != nil {
				return err
			}
			g.status(cmd, "Firmware uploaded, the device restarts shortly")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip the local image check")
	return cmd
}

func newPushCmd(g *globalFlags) *cobra.Command {
	var force, unsafeCRC bool
	cmd := &cobra.Command{
		Use:   "push <config.yaml|record.bin>... [key=value]...",
		Short: "Upload a configuration record",
		Long: `Upload a configuration record built from the given files, applied in
order on top of the defaults, and from key=value overrides.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, overrides := splitOverrides(args)
			cfg, err := loadConfig(files, overrides, force)
			if err != nil {
				return err
			}
			rec, err := record.Encode(cfg, unsafeCRC)
			if err != nil {
				return err
			}

			c, err := g.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := c.Push(cmd.Context(), client.ConfigName, rec); err != nil {
				return err
			}
			g.status(cmd, "Configuration uploaded (%d bytes)", len(rec))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "accept binary records with a bad checksum or version")
	cmd.Flags().BoolVar(&unsafeCRC, "unsafe-crc", false, "let the device compute the checksum")
	return cmd
}

func newPullCmd(g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "pull [output]",
		Short: "Download the active configuration record",
		Long: `Download the active configuration record. The output is YAML for
*.yaml files and "-" (the default, stdout), a binary record otherwise.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := "-"
			if len(args) == 1 {
				out = args[0]
			}

			c, err := g.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			raw, err := c.Pull(cmd.Context(), client.ConfigName)
			if err != nil {
				return err
			}

			var data []byte
			if isText(out) || out == "-" {
				cfg, err := decodeBinary(raw, force)
				if err != nil {
					return fmt.Errorf("device record: %w", err)
				}
				if data, err = render(cfg, out, false); err != nil {
					return err
				}
			} else {
				data = raw
			}
			return writeOutput(out, data, func(b []byte) error {
				_, err := cmd.OutOrStdout().Write(b)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "decode a record with a bad checksum or version")
	return cmd
}

func newBackupCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <output>",
		Short: "Download the whole configuration partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			img, err := c.Pull(cmd.Context(), client.FullConfigName)
			if err != nil {
				return err
			}
			if len(img) != store.PartitionSize {
				g.status(cmd, "Warning: partition image is %d bytes, expected %d", len(img), store.PartitionSize)
			}
			return os.WriteFile(args[0], img, 0o600)
		},
	}
}

func newRestoreCmd(g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "restore <image>",
		Short: "Overwrite the whole configuration partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(img) > store.PartitionSize || (len(img) != store.PartitionSize && !force) {
				return fmt.Errorf("%s: %d bytes, a partition image has %d (use --force for shorter images)", args[0], len(img), store.PartitionSize)
			}

			c, err := g.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := c.Push(cmd.Context(), client.FullConfigName, img); err != nil {
				return err
			}
			g.status(cmd, "Configuration partition restored")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "accept images shorter than the partition")
	return cmd
}

func newConvertCmd(g *globalFlags) *cobra.Command {
	var force, unsafeCRC bool
	cmd := &cobra.Command{
		Use:   "convert <input>... <output|-> [key=value]...",
		Short: "Convert configuration files between YAML and binary form",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, overrides := splitOverrides(args)
			if len(files) < 2 {
				return fmt.Errorf("need at least one input and one output")
			}
			out := files[len(files)-1]

			cfg, err := loadConfig(files[:len(files)-1], overrides, force)
			if err != nil {
				return err
			}
			data, err := render(cfg, out, unsafeCRC)
			if err != nil {
				return err
			}
			return writeOutput(out, data, func(b []byte) error {
				_, err := cmd.OutOrStdout().Write(b)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "accept binary records with a bad checksum or version")
	cmd.Flags().BoolVar(&unsafeCRC, "unsafe-crc", false, "write the auto checksum marker instead of the checksum")
	return cmd
}
