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
	app.Execute(app.Command("mouse_server", "Accept pointer commands and drive the local pointer",
		func(ctx context.Context, _ *cobra.Command, cfg *config.Config) error {
			return app.RunServer(ctx, cfg)
		}))
}
