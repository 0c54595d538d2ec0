// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/inertial_mouse/internal/config"
)

func TestCommandLoadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mouse.conf")
	if err := os.WriteFile(path, []byte("SERVER_ADDRESS=10.0.0.2:6000\nLOG_LEVEL=error\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var got *config.Config
	cmd := Command("test", "test", func(ctx context.Context, _ *cobra.Command, cfg *config.Config) error {
		if ctx.Err() != nil {
			t.Error("run context already cancelled")
		}
		got = cfg
		return nil
	})
	cmd.SetArgs([]string{"--config", path})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if got == nil || got.ServerAddress != "10.0.0.2:6000" {
		t.Fatalf("config not loaded: %+v", got)
	}
	if config.Get() != got {
		t.Error("run did not receive the global config")
	}
}

func TestCommandRejectsBadConfig(t *testing.T) {
	ran := false
	cmd := Command("test", "test", func(context.Context, *cobra.Command, *config.Config) error {
		ran = true
		return nil
	})
	cmd.SetArgs([]string{"-c", filepath.Join(t.TempDir(), "missing.conf")})
	cmd.SilenceErrors = true
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("Execute() succeeded with a missing config file")
	}
	if ran {
		t.Error("run called despite config error")
	}
}
