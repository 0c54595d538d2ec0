// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/inertial_mouse/internal/imu"
	"github.com/relabs-tech/inertial_mouse/internal/log"
)

// TypeIMUA is the proprietary sentence carrying one accelerometer sample
// in m/s²: $PIMUA,<ax>,<ay>,<az>*<checksum>
const TypeIMUA = "IMUA"

// IMUA is a parsed $PIMUA sentence.
type IMUA struct {
	nmea.BaseSentence
	Accel imu.Vec3
}

func init() {
	if err := nmea.RegisterParser(TypeIMUA, parseIMUA); err != nil {
		panic(err)
	}
}

func parseIMUA(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) != 3 {
		return nil, fmt.Errorf("nmea: %s expects 3 fields, got %d", s.Prefix(), len(s.Fields))
	}
	p := nmea.NewParser(s)
	m := IMUA{
		BaseSentence: s,
		Accel: imu.Vec3{
			p.Float64(0, "ax"),
			p.Float64(1, "ay"),
			p.Float64(2, "az"),
		},
	}
	return m, p.Err()
}

// ParseIMUA parses one $PIMUA line.
func ParseIMUA(line string) (imu.Vec3, error) {
	sentence, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return imu.Vec3{}, err
	}
	m, ok := sentence.(IMUA)
	if !ok {
		return imu.Vec3{}, fmt.Errorf("nmea: unexpected sentence %s", sentence.Prefix())
	}
	return m.Accel, nil
}

// ReaderSource reads $PIMUA lines from a stream and serves the most
// recent sample. Other sentences and corrupt lines are skipped.
type ReaderSource struct {
	name string
	rc   io.ReadCloser

	startOnce sync.Once
	mu        sync.Mutex
	latest    imu.Vec3
	have      bool
	enabled   bool
	streamErr error
}

func NewReaderSource(name string, rc io.ReadCloser) *ReaderSource {
	return &ReaderSource{name: name, rc: rc}
}

// OpenSerial opens a serial port streaming $PIMUA sentences.
func OpenSerial(port string, baud uint) (*ReaderSource, error) {
	opts := serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	rc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", port, err)
	}
	log.Info("serial: port opened", "port", port, "baud", baud)
	return NewReaderSource("serial:"+port, rc), nil
}

func (s *ReaderSource) Name() string { return s.name }

// Enable starts the background reader on first use.
func (s *ReaderSource) Enable() error {
	s.startOnce.Do(func() { go s.readLoop() })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamErr != nil {
		return fmt.Errorf("%s: %w", s.name, s.streamErr)
	}
	s.enabled = true
	return nil
}

func (s *ReaderSource) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	return nil
}

// ReadRaw returns the latest sample, or ErrNoData before the first one
// and after the stream ended.
func (s *ReaderSource) ReadRaw() (imu.Vec3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || !s.have || s.streamErr != nil {
		return imu.Vec3{}, imu.ErrNoData
	}
	return s.latest, nil
}

// Close closes the underlying stream, which ends the reader.
func (s *ReaderSource) Close() error {
	return s.rc.Close()
}

func (s *ReaderSource) readLoop() {
	reader := bufio.NewReader(s.rc)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "$") {
			s.handleLine(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			log.Warn("serial: stream ended", "source", s.name, "err", err)
			s.mu.Lock()
			s.streamErr = err
			s.mu.Unlock()
			return
		}
	}
}

func (s *ReaderSource) handleLine(line string) {
	accel, err := ParseIMUA(line)
	if err != nil {
		log.Debug("serial: skipping line", "source", s.name, "line", line, "err", err)
		return
	}
	if !accel.Valid() {
		return
	}
	s.mu.Lock()
	s.latest, s.have = accel, true
	s.mu.Unlock()
}
