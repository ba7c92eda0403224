// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cmd_config.go - Configuration file commands.
//
// Command: config init|show|path
//
// Examples:
//   chatwidget config init --force
//   chatwidget config show --format yaml
//   chatwidget config path

package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/futurebot-ai/chatwidget/internal/cli"
	"github.com/futurebot-ai/chatwidget/internal/config"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(
		newConfigInitCmd(flags),
		newConfigShowCmd(flags),
		newConfigPathCmd(flags),
	)
	return cmd
}

func newConfigInitCmd(flags *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if path == "" {
				if err := config.EnsureConfigDir(); err != nil {
					return err
				}
				paths, err := config.ConfigPaths()
				if err != nil {
					return err
				}
				path = paths[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			cli.PrintSuccess(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(flags *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if flags.host != "" {
				cfg.Backend.Host = flags.host
			}

			out := cmd.OutOrStdout()
			switch format {
			case "toml":
				return toml.NewEncoder(out).Encode(cfg)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(cfg)
			default:
				return fmt.Errorf("unknown format %q (want toml or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "toml or yaml")
	return cmd
}

func newConfigPathCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config directory and the file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			_, path, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if path == "" {
				path = "(none, using defaults)"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dir:  %s\n", dir)
			fmt.Fprintf(out, "file: %s\n", path)
			return nil
		},
	}
}
