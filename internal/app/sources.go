// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/inertial_mouse/internal/config"
	"github.com/relabs-tech/inertial_mouse/internal/imu"
	"github.com/relabs-tech/inertial_mouse/internal/log"
	"github.com/relabs-tech/inertial_mouse/internal/pointer"
	"github.com/relabs-tech/inertial_mouse/internal/sensors"
)

// OpenSource builds the configured raw sample source. The returned
// cleanup releases the device and is never nil.
func OpenSource(cfg *config.Config) (imu.RawSource, func(), error) {
	noop := func() {}
	switch cfg.SensorKind {
	case config.SensorMPU9250:
		src, err := sensors.NewMPU9250Source(sensors.MPU9250Options{
			SPIDevice:  cfg.IMUSPIDevice,
			CSPin:      cfg.IMUCSPin,
			AccelRange: cfg.IMUAccelRange,
		})
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil
	case config.SensorSerial:
		src, err := sensors.OpenSerial(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return nil, noop, err
		}
		return src, func() {
			if err := src.Close(); err != nil {
				log.Warn("serial: close failed", "err", err)
			}
		}, nil
	case config.SensorSim:
		return sensors.NewSimSource(2, 4*time.Second, 0.05), noop, nil
	case config.SensorRandom:
		return sensors.NewRandomSource(imu.EarthGravity, 0.5, time.Now().UnixNano()), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown sensor kind %q", cfg.SensorKind)
	}
}

// OpenSensor wraps the configured source with its calibration, if any.
func OpenSensor(cfg *config.Config) (*imu.Sensor, func(), error) {
	src, cleanup, err := OpenSource(cfg)
	if err != nil {
		return nil, cleanup, err
	}
	var cal *imu.Calibration
	if cfg.CalibrationFile != "" {
		cal, err = imu.LoadCalibration(cfg.CalibrationFile)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		log.Info("sensor: calibration loaded", "file", cfg.CalibrationFile,
			"offset", cal.Offset, "gains", cal.Gains, "angles", cal.Angles)
	}
	log.Info("sensor: source ready", "source", src.Name())
	return imu.NewSensor(src, cal), cleanup, nil
}

// OpenPointer builds the configured pointer backend.
func OpenPointer(cfg *config.Config) (pointer.Pointer, error) {
	switch cfg.PointerKind {
	case config.PointerUinput:
		return pointer.NewUinputPointer(pointer.DefaultUinputPath)
	case config.PointerLog:
		return pointer.NewLogPointer(), nil
	default:
		return nil, fmt.Errorf("unknown pointer kind %q", cfg.PointerKind)
	}
}
