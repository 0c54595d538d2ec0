// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relabs-tech/inertial_mouse/internal/log"
)

const tolerance = 1e-9

func vecNear(a, b Vec3) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tolerance {
			return false
		}
	}
	return true
}

type stubSource struct {
	next    Vec3
	err     error
	enabled bool
}

func (s *stubSource) Name() string           { return "stub" }
func (s *stubSource) Enable() error          { s.enabled = true; return nil }
func (s *stubSource) Disable() error         { s.enabled = false; return nil }
func (s *stubSource) ReadRaw() (Vec3, error) { return s.next, s.err }

func TestSensorReadPassesThroughWithoutCalibration(t *testing.T) {
	src := &stubSource{next: Vec3{1, 2, 3}}
	s := NewSensor(src, nil)
	if got := s.Read(); got != (Vec3{1, 2, 3}) {
		t.Errorf("Read() = %v, want [1 2 3]", got)
	}
}

func TestSensorReadSubstitutesZeroOnMissingData(t *testing.T) {
	src := &stubSource{next: Vec3{9, 9, 9}, err: ErrNoData}
	s := NewSensor(src, nil)
	if got := s.Read(); got != (Vec3{}) {
		t.Errorf("Read() with ErrNoData = %v, want zero", got)
	}

	src.err = errors.New("bus fault")
	if got := s.Read(); got != (Vec3{}) {
		t.Errorf("Read() with bus fault = %v, want zero", got)
	}

	src.err = nil
	src.next = Vec3{1, math.NaN(), 3}
	if got := s.Read(); got != (Vec3{}) {
		t.Errorf("Read() with partial sample = %v, want zero", got)
	}
}

func TestSensorReadFailureWarningsAreThrottled(t *testing.T) {
	var buf bytes.Buffer
	log.InitWriter(&buf, "warn")
	defer log.Init("info")

	s := NewSensor(&stubSource{err: ErrNoData}, nil)
	for i := 0; i < 100; i++ {
		s.Read()
	}
	if got := s.Failures(); got != 100 {
		t.Errorf("Failures() = %d, want 100", got)
	}
	if n := strings.Count(buf.String(), "sensor read failed"); n != 1 {
		t.Errorf("logged %d warnings for 100 failed reads, want 1:\n%s", n, buf.String())
	}
}

func TestSensorZeroSubstitutionHappensBeforeCorrection(t *testing.T) {
	cal, err := NewCalibration(Vec3{1, 1, 1}, Vec3{2, 2, 2}, Vec3{})
	if err != nil {
		t.Fatal(err)
	}
	s := NewSensor(&stubSource{err: ErrNoData}, cal)
	if got, want := s.Read(), (Vec3{-0.5, -0.5, -0.5}); !vecNear(got, want) {
		t.Errorf("Read() = %v, want %v", got, want)
	}
}

func TestCalibrationCorrectOffsetAndGain(t *testing.T) {
	cal, err := NewCalibration(Vec3{0.1, -0.2, 0.3}, Vec3{1, 2, 0.5}, Vec3{})
	if err != nil {
		t.Fatal(err)
	}
	got := cal.Correct(Vec3{1.1, 1.8, 1.3})
	if want := (Vec3{1, 1, 2}); !vecNear(got, want) {
		t.Errorf("Correct() = %v, want %v", got, want)
	}
}

func TestCalibrationCorrectRotatesByMountAngles(t *testing.T) {
	cal, err := NewCalibration(Vec3{}, Vec3{1, 1, 1}, Vec3{0, 0, 90})
	if err != nil {
		t.Fatal(err)
	}
	got := cal.Correct(Vec3{1, 0, 0})
	if want := (Vec3{0, -1, 0}); !vecNear(got, want) {
		t.Errorf("Correct() = %v, want %v", got, want)
	}
	if n := got.Norm(); math.Abs(n-1) > tolerance {
		t.Errorf("rotation changed length: %v", n)
	}
}

func TestNewCalibrationRejectsZeroGain(t *testing.T) {
	if _, err := NewCalibration(Vec3{}, Vec3{1, 0, 1}, Vec3{}); err == nil {
		t.Fatal("expected error for zero gain")
	}
}

func TestLoadCalibration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration.json")
	body := `{"offset":[0.1,0.2,0.3],"gains":[1.0,1.0,1.02],"angles":[0,0,0]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cal, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	if cal.Offset != (Vec3{0.1, 0.2, 0.3}) || cal.Gains != (Vec3{1, 1, 1.02}) {
		t.Errorf("unexpected coefficients: %+v", cal)
	}

	missing := filepath.Join(dir, "partial.json")
	if err := os.WriteFile(missing, []byte(`{"offset":[0,0,0]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCalibration(missing); err == nil {
		t.Error("expected error for missing gains")
	}
}

func TestVecHelpers(t *testing.T) {
	v := Vec3{3, 4, 12}
	if v.Norm() != 13 {
		t.Errorf("Norm = %v, want 13", v.Norm())
	}
	if v.HorizontalNorm() != 5 {
		t.Errorf("HorizontalNorm = %v, want 5", v.HorizontalNorm())
	}
	if got := v.Sub(Vec3{1, 1, 1}).Scale(2).Add(Vec3{0, 0, 1}); got != (Vec3{4, 6, 23}) {
		t.Errorf("arithmetic = %v", got)
	}
	if (Vec3{math.Inf(1), 0, 0}).Valid() {
		t.Error("Inf reported valid")
	}
}

func TestTilt(t *testing.T) {
	tests := []struct {
		name        string
		a           Vec3
		roll, pitch float64
	}{
		{"flat", Vec3{0, 0, 9.81}, 0, 0},
		{"left side", Vec3{0, 9.81, 0}, 90, 0},
		{"nose down", Vec3{9.81, 0, 0}, 0, -90},
		{"upside down", Vec3{0, 0, -9.81}, 180, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roll, pitch := Tilt(tt.a)
			if math.Abs(roll-tt.roll) > tolerance || math.Abs(pitch-tt.pitch) > tolerance {
				t.Errorf("Tilt(%v) = (%v, %v), want (%v, %v)", tt.a, roll, pitch, tt.roll, tt.pitch)
			}
		})
	}
}
