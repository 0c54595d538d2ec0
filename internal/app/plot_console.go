// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/relabs-tech/inertial_mouse/internal/config"
	"github.com/relabs-tech/inertial_mouse/internal/log"
	"github.com/relabs-tech/inertial_mouse/internal/plot"
)

const sparkWidth = 40

// FormatPlotLine renders one sample with a sparkline of the recent dx
// and dy history.
func FormatPlotLine(s plot.Sample, history []plot.Sample) string {
	if len(history) > sparkWidth {
		history = history[len(history)-sparkWidth:]
	}
	dx := make([]float64, len(history))
	dy := make([]float64, len(history))
	scale := 1.0
	for i, h := range history {
		dx[i], dy[i] = h.DX, h.DY
		scale = math.Max(scale, math.Max(math.Abs(h.DX), math.Abs(h.DY)))
	}

	click := "  "
	switch {
	case s.Click[0]:
		click = "L "
	case s.Click[1]:
		click = " R"
	}
	return fmt.Sprintf("[PLOT] %6d %s dx=%6.0f dy=%6.0f |%s| |%s|",
		s.Seq, click, s.DX, s.DY,
		plot.Sparkline(dx, -scale, scale), plot.Sparkline(dy, -scale, scale))
}

// RunPlotConsole prints plot samples from MQTT to out until ctx is
// cancelled.
func RunPlotConsole(ctx context.Context, cfg *config.Config, out io.Writer) error {
	client, err := plot.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	history := plot.NewRing(cfg.PlotPoints)

	var mu sync.Mutex
	err = plot.Subscribe(client, cfg.TopicPlot, func(s plot.Sample) {
		history.Publish(s)
		line := FormatPlotLine(s, history.Snapshot())
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, line)
	})
	if err != nil {
		client.Disconnect(250)
		return err
	}

	<-ctx.Done()
	log.Info("console: shutting down")
	client.Disconnect(250)
	return nil
}
