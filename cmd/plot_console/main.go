// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/inertial_mouse/internal/app"
	"github.com/relabs-tech/inertial_mouse/internal/config"
)

func main() {
	app.Execute(app.Command("plot_console", "Print plot samples from MQTT as terminal sparklines",
		func(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
			return app.RunPlotConsole(ctx, cfg, cmd.OutOrStdout())
		}))
}
