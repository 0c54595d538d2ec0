// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/inertial_mouse/internal/config"
	"github.com/relabs-tech/inertial_mouse/internal/log"
)

var version = "dev"

// RunFunc is the body of one binary, run with the loaded configuration.
type RunFunc func(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error

// Command builds the root command shared by every binary: a --config
// flag, global config loading and logger setup before run.
func Command(use, short string, run RunFunc) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          use,
		Short:        short,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitGlobal(configPath); err != nil {
				return err
			}
			cfg := config.Get()
			log.Init(cfg.LogLevel)
			log.Info("starting", "binary", use, "config", configPath)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cmd, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file (KEY=VALUE or .yaml); defaults when empty")
	return cmd
}

// Execute runs cmd and exits non-zero on failure.
func Execute(cmd *cobra.Command) {
	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}
