// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/relabs-tech/inertial_mouse/internal/config"
	"github.com/relabs-tech/inertial_mouse/internal/log"
	"github.com/relabs-tech/inertial_mouse/internal/plot"
)

//go:embed web
var webFiles embed.FS

// NewPlotMux serves the live plot page and its data endpoints.
func NewPlotMux(hub *plot.Hub, history *plot.Ring) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws/plot", hub)
	mux.HandleFunc("/api/plot/latest", hub.LatestHandler())
	mux.HandleFunc("/api/plot/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(history.Snapshot()); err != nil {
			log.Warn("web: json encode error", "err", err)
		}
	})

	static, err := fs.Sub(webFiles, "web")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

// RunPlotWeb relays plot samples from MQTT to browsers until ctx is
// cancelled.
func RunPlotWeb(ctx context.Context, cfg *config.Config) error {
	hub := plot.NewHub()
	defer hub.Close()
	history := plot.NewRing(cfg.PlotPoints)

	client, err := plot.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	sinks := plot.Fanout{hub, history}
	err = plot.Subscribe(client, cfg.TopicPlot, func(s plot.Sample) {
		if err := sinks.Publish(s); err != nil {
			log.Warn("web: relay failed", "err", err)
		}
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           NewPlotMux(hub, history),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("web: shutdown error", "err", err)
		}
	}()

	log.Info("web: server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
