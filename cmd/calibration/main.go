// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// calibration walks the operator through the seven-pose accelerometer
// calibration and writes the result as JSON.
package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/inertial_mouse/internal/app"
	"github.com/relabs-tech/inertial_mouse/internal/config"
)

func main() {
	var out string
	cmd := app.Command("calibration", "Guided accelerometer calibration",
		func(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
			return app.RunCalibration(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), out)
		})
	cmd.Flags().StringVarP(&out, "out", "o", "calibration.json", "output calibration file")
	app.Execute(cmd)
}
