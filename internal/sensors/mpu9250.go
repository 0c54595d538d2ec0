// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_mouse/internal/imu"
	"github.com/relabs-tech/inertial_mouse/internal/log"
)

// StandardGravity converts g to m/s².
const StandardGravity = 9.80665

// MPU9250Options selects the SPI wiring and full scale range.
type MPU9250Options struct {
	SPIDevice  string // e.g. /dev/spidev0.0
	CSPin      string // GPIO name of the chip select line
	AccelRange byte   // 0=±2g 1=±4g 2=±8g 3=±16g
}

// accelLSBPerG is the MPU9250 sensitivity for each AccelRange setting.
var accelLSBPerG = [4]float64{16384, 8192, 4096, 2048}

// MPU9250Source reads the accelerometer of an MPU9250 over SPI and
// reports m/s².
type MPU9250Source struct {
	opts MPU9250Options

	mu      sync.Mutex
	dev     *mpu9250.MPU9250
	enabled bool
}

func NewMPU9250Source(opts MPU9250Options) (*MPU9250Source, error) {
	if int(opts.AccelRange) >= len(accelLSBPerG) {
		return nil, fmt.Errorf("mpu9250: accel range %d out of range (0-3)", opts.AccelRange)
	}
	return &MPU9250Source{opts: opts}, nil
}

func (s *MPU9250Source) Name() string { return "mpu9250:" + s.opts.SPIDevice }

// Enable initializes the device on first use. Later calls only resume
// reading.
func (s *MPU9250Source) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		dev, err := s.open()
		if err != nil {
			return err
		}
		s.dev = dev
	}
	s.enabled = true
	return nil
}

func (s *MPU9250Source) open() (*mpu9250.MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: periph host init: %w", err)
	}

	cs := gpioreg.ByName(s.opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("mpu9250: CS pin %q not found", s.opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(s.opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: SPI transport (%s): %w", s.opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: initialization: %w", err)
	}
	if err := dev.SetAccelRange(s.opts.AccelRange); err != nil {
		return nil, fmt.Errorf("mpu9250: set accel range: %w", err)
	}
	log.Info("mpu9250: accelerometer range set", "range", s.opts.AccelRange,
		"g", []int{2, 4, 8, 16}[s.opts.AccelRange])

	if err := dev.Calibrate(); err != nil {
		log.Warn("mpu9250: calibration failed", "err", err)
	} else {
		log.Info("mpu9250: calibration complete")
	}
	return dev, nil
}

// Disable stops reads. The device keeps its configuration so a later
// Enable skips initialization.
func (s *MPU9250Source) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	return nil
}

func (s *MPU9250Source) ReadRaw() (imu.Vec3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.dev == nil {
		return imu.Vec3{}, imu.ErrNoData
	}

	ax, err := s.dev.GetAccelerationX()
	if err != nil {
		return imu.Vec3{}, fmt.Errorf("mpu9250 accel X: %w", err)
	}
	ay, err := s.dev.GetAccelerationY()
	if err != nil {
		return imu.Vec3{}, fmt.Errorf("mpu9250 accel Y: %w", err)
	}
	az, err := s.dev.GetAccelerationZ()
	if err != nil {
		return imu.Vec3{}, fmt.Errorf("mpu9250 accel Z: %w", err)
	}
	return CountsToAccel([3]int16{ax, ay, az}, s.opts.AccelRange), nil
}

// CountsToAccel scales raw accelerometer counts to m/s².
func CountsToAccel(counts [3]int16, accelRange byte) imu.Vec3 {
	lsb := accelLSBPerG[accelRange&3]
	var v imu.Vec3
	for i, c := range counts {
		v[i] = float64(c) / lsb * StandardGravity
	}
	return v
}
