// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/relabs-tech/inertial_mouse/internal/plot"
)

func TestPlotMux(t *testing.T) {
	hub := plot.NewHub()
	defer hub.Close()
	ring := plot.NewRing(10)
	for i := uint64(1); i <= 3; i++ {
		ring.Publish(plot.Sample{Seq: i, DX: float64(i)})
	}
	srv := httptest.NewServer(NewPlotMux(hub, ring))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "/ws/plot") {
		t.Errorf("GET / = %d, page missing websocket endpoint", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/plot/history")
	if err != nil {
		t.Fatal(err)
	}
	var history []plot.Sample
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(history) != 3 || history[2].Seq != 3 {
		t.Errorf("history = %+v", history)
	}

	resp, err = http.Get(srv.URL + "/api/plot/latest")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("latest before any live sample = %d, want 503", resp.StatusCode)
	}
}

func TestFormatPlotLine(t *testing.T) {
	history := []plot.Sample{{DX: -10}, {DX: 0}, {DX: 10, DY: 5}}
	s := plot.Sample{Seq: 42, DX: 10, DY: 5, Click: [2]bool{true, false}}

	got := FormatPlotLine(s, history)
	want := "[PLOT]     42 L  dx=    10 dy=     5 | ▄█| |▄▄▆|"
	if got != want {
		t.Errorf("FormatPlotLine() =\n%q\nwant\n%q", got, want)
	}
}
