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
	app.Execute(app.Command("plot_web", "Serve the live motion plot over HTTP and WebSocket",
		func(ctx context.Context, _ *cobra.Command, cfg *config.Config) error {
			return app.RunPlotWeb(ctx, cfg)
		}))
}
