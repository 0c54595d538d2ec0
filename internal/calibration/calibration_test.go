// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/relabs-tech/inertial_mouse/internal/imu"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// idealPoses returns what a sensor with the given offset and gains reads
// in each step when mounted square.
func idealPoses(offset, gains imu.Vec3) []imu.Vec3 {
	truth := []imu.Vec3{
		{0, 0, Gravity},
		{0, 0, Gravity},
		{Gravity, 0, 0},
		{-Gravity, 0, 0},
		{0, Gravity, 0},
		{0, -Gravity, 0},
		{0, 0, -Gravity},
	}
	out := make([]imu.Vec3, len(truth))
	for i, t := range truth {
		for d := range t {
			out[i][d] = t[d]*gains[d] + offset[d]
		}
	}
	return out
}

func TestComputeRecoversOffsetAndGains(t *testing.T) {
	offset := imu.Vec3{0.3, -0.2, 0.5}
	gains := imu.Vec3{1.02, 0.98, 1.01}

	cal, err := Compute(idealPoses(offset, gains))
	if err != nil {
		t.Fatalf("Compute() = %v", err)
	}
	if diff := cmp.Diff(offset, cal.Offset, approx); diff != "" {
		t.Errorf("offset mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(gains, cal.Gains, approx); diff != "" {
		t.Errorf("gains mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(imu.Vec3{}, cal.Angles, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("square mount should have no angles (-want +got):\n%s", diff)
	}
}

func TestComputeBenchMeans(t *testing.T) {
	means := []imu.Vec3{
		{2.0, 1.0, 2.1},
		{2.1, 1.1, 2.15},
		{2.05, 0.9, 2.13},
		{2.03, 1.11, 2.11},
		{2.1, 1.1, 2.12},
		{2.01, 0.095, 1.95},
		{2.0, 1.0, 2.0},
	}
	cal, err := Compute(means)
	if err != nil {
		t.Fatalf("Compute() = %v", err)
	}
	wantOffset := imu.Vec3{2.04, 0.5975, 2.05}
	wantGains := imu.Vec3{0.02 / 19.62, 1.005 / 19.62, 0.1 / 19.62}
	opt := cmpopts.EquateApprox(1e-9, 1e-12)
	if diff := cmp.Diff(wantOffset, cal.Offset, opt); diff != "" {
		t.Errorf("offset mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantGains, cal.Gains, opt); diff != "" {
		t.Errorf("gains mismatch (-want +got):\n%s", diff)
	}
	for d, a := range cal.Angles {
		if a < -90 || a > 90 {
			t.Errorf("angle %d = %v out of range", d, a)
		}
	}
}

func TestComputeRejects(t *testing.T) {
	if _, err := Compute(make([]imu.Vec3, 3)); err == nil {
		t.Error("Compute() accepted 3 poses")
	}
	same := make([]imu.Vec3, len(Steps))
	for i := range same {
		same[i] = imu.Vec3{1, 1, 1}
	}
	if _, err := Compute(same); err == nil {
		t.Error("Compute() accepted identical poses")
	}
}

func TestComputeStats(t *testing.T) {
	st, err := ComputeStats([]imu.Vec3{{1, 2, 3}, {3, 2, 1}})
	if err != nil {
		t.Fatal(err)
	}
	want := PoseStats{Samples: 2, Mean: imu.Vec3{2, 2, 2}, StdDev: imu.Vec3{1, 0, 1}}
	if diff := cmp.Diff(want, st, approx); diff != "" {
		t.Errorf("ComputeStats() mismatch (-want +got):\n%s", diff)
	}
	if _, err := ComputeStats(nil); !errors.Is(err, ErrNoSamples) {
		t.Errorf("ComputeStats(nil) = %v, want ErrNoSamples", err)
	}
}

type scriptedSource struct {
	mu    sync.Mutex
	reads []imu.Vec3
	errs  []error
	i     int
}

func (s *scriptedSource) Name() string   { return "scripted" }
func (s *scriptedSource) Enable() error  { return nil }
func (s *scriptedSource) Disable() error { return nil }

func (s *scriptedSource) ReadRaw() (imu.Vec3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.i % len(s.reads)
	s.i++
	return s.reads[i], s.errs[i]
}

func TestCaptureSkipsIncompleteReadings(t *testing.T) {
	src := &scriptedSource{
		reads: []imu.Vec3{{1, 2, 3}, {}, {1, 0, 3}},
		errs:  []error{nil, imu.ErrNoData, nil},
	}
	values, err := Capture(context.Background(), src, 60*time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("Capture() = %v", err)
	}
	if len(values) == 0 {
		t.Fatal("Capture() returned no values")
	}
	for _, v := range values {
		if v != (imu.Vec3{1, 2, 3}) {
			t.Fatalf("Capture() kept %v", v)
		}
	}
}

func TestCaptureFailsOnReadError(t *testing.T) {
	boom := errors.New("spi timeout")
	src := &scriptedSource{reads: []imu.Vec3{{}}, errs: []error{boom}}
	if _, err := Capture(context.Background(), src, time.Second, time.Millisecond); !errors.Is(err, boom) {
		t.Errorf("Capture() = %v, want %v", err, boom)
	}
}

func TestWriteLoadsBack(t *testing.T) {
	cal, err := imu.NewCalibration(imu.Vec3{0.1, 0.2, 0.3}, imu.Vec3{1, 1, 1.02}, imu.Vec3{0, 0, 5})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := Write(path, cal); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	got, err := imu.LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration() = %v", err)
	}
	if diff := cmp.Diff(cal, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
