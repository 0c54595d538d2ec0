// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// mouse_client samples the accelerometer and streams pointer commands to
// mouse_server. Type "l" or "r" followed by ENTER to click.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/inertial_mouse/internal/app"
	"github.com/relabs-tech/inertial_mouse/internal/config"
)

func main() {
	app.Execute(app.Command("mouse_client", "Stream accelerometer motion as pointer commands",
		func(ctx context.Context, _ *cobra.Command, cfg *config.Config) error {
			return app.RunClient(ctx, cfg, os.Stdin)
		}))
}
