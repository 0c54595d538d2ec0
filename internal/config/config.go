// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/inertial_mouse/internal/filter"
	"github.com/relabs-tech/inertial_mouse/internal/imu"
	"github.com/relabs-tech/inertial_mouse/internal/motion"
)

// Decode failure policies for the pointer server.
const (
	DecodePolicyClose = "close"
	DecodePolicySkip  = "skip"
)

// Sample sources.
const (
	SensorMPU9250 = "mpu9250"
	SensorSerial  = "serial"
	SensorSim     = "sim"
	SensorRandom  = "random"
)

// Pointer backends.
const (
	PointerLog    = "log"
	PointerUinput = "uinput"
)

// Config holds all application configuration values.
type Config struct {
	// Transport
	ServerAddress     string
	ConnectTimeoutMS  int
	AckTimeoutMS      int // 0 waits forever
	ReconnectMaxMS    int
	DecodeErrorPolicy string

	// Sampling
	SampleIntervalMS int
	QueueCapacity    int
	PopTimeoutMS     int

	// Filter cascade
	LowPassAlpha      float64
	RollingWindow     int
	ProcessNoise      float64
	AccelNoiseRatio   float64
	MeasurementNoise  float64
	InitialCovariance float64
	IdleThreshold     float64
	IdleDurationMS    int
	MotionGain        float64

	// GravityCompensation subtracts earth gravity from calibrated samples.
	GravityCompensation bool

	// Sensor
	SensorKind      string
	CalibrationFile string
	IMUSPIDevice    string
	IMUCSPin        string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange  byte
	SerialPort     string
	SerialBaudRate uint

	// Pointer
	PointerKind string
	MouseSpeed  float64

	// MQTT
	MQTTBroker          string
	MQTTClientIDServer  string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string
	TopicPlot           string

	// Plotting
	WebServerPort int
	PlotPoints    int

	// Display
	DisplayEnabled        bool
	DisplayUpdateInterval int // milliseconds

	LogLevel string
}

// Default returns a configuration that runs the simulated source against
// a local server.
func Default() *Config {
	ep := filter.DefaultEstimatorParams()
	return &Config{
		ServerAddress:     "127.0.0.1:5000",
		ConnectTimeoutMS:  5000,
		AckTimeoutMS:      2000,
		ReconnectMaxMS:    10000,
		DecodeErrorPolicy: DecodePolicyClose,

		SampleIntervalMS: 10,
		QueueCapacity:    256,
		PopTimeoutMS:     50,

		LowPassAlpha:      1,
		RollingWindow:     10,
		ProcessNoise:      ep.ProcessNoise,
		AccelNoiseRatio:   ep.AccelNoiseRatio,
		MeasurementNoise:  ep.MeasurementNoise,
		InitialCovariance: ep.InitialCovariance,
		IdleThreshold:     ep.IdleThreshold,
		IdleDurationMS:    int(ep.IdleDuration * 1000),
		MotionGain:        1,

		GravityCompensation: true,

		SensorKind:     SensorSim,
		IMUSPIDevice:   "/dev/spidev0.0",
		IMUCSPin:       "8",
		SerialPort:     "/dev/ttyUSB0",
		SerialBaudRate: 115200,

		PointerKind: PointerLog,
		MouseSpeed:  100,

		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDServer:  "inertial-mouse-server",
		MQTTClientIDWeb:     "inertial-mouse-web",
		MQTTClientIDConsole: "inertial-mouse-console",
		TopicPlot:           "inertial_mouse/plot",

		WebServerPort: 8080,
		PlotPoints:    200,

		DisplayUpdateInterval: 200,

		LogLevel: "info",
	}
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Load reads a configuration file on top of Default(). Files ending in
// .yaml or .yml are YAML maps; anything else is KEY=VALUE lines. An
// empty path returns the defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, cfg.validate()
	}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = cfg.readYAML(file)
	default:
		err = cfg.readKeyValue(file)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readKeyValue(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// readYAML accepts a flat map using the same keys, in any case
// (server_address or SERVER_ADDRESS).
func (c *Config) readYAML(r io.Reader) error {
	var doc map[string]yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("invalid YAML config: %w", err)
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		node := doc[k]
		if node.Kind != yaml.ScalarNode {
			return fmt.Errorf("config key %s (line %d): expected a scalar value", k, node.Line)
		}
		if err := c.setValue(strings.ToUpper(k), node.Value); err != nil {
			return fmt.Errorf("config line %d: %w", node.Line, err)
		}
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Transport
	case "SERVER_ADDRESS":
		c.ServerAddress = value
	case "CONNECT_TIMEOUT_MS":
		c.ConnectTimeoutMS, err = parseInt(key, value, 1)
	case "ACK_TIMEOUT_MS":
		c.AckTimeoutMS, err = parseInt(key, value, 0)
	case "RECONNECT_MAX_BACKOFF_MS":
		c.ReconnectMaxMS, err = parseInt(key, value, 1)
	case "DECODE_ERROR_POLICY":
		c.DecodeErrorPolicy, err = oneOf(key, value, DecodePolicyClose, DecodePolicySkip)

	// Sampling
	case "SAMPLE_INTERVAL_MS":
		c.SampleIntervalMS, err = parseInt(key, value, 1)
	case "QUEUE_CAPACITY":
		c.QueueCapacity, err = parseInt(key, value, 1)
	case "POP_TIMEOUT_MS":
		c.PopTimeoutMS, err = parseInt(key, value, 1)

	// Filter cascade
	case "LOWPASS_ALPHA":
		c.LowPassAlpha, err = parseFloat(key, value)
		if err == nil && (c.LowPassAlpha <= 0 || c.LowPassAlpha > 1) {
			err = fmt.Errorf("invalid LOWPASS_ALPHA %q: must be in (0, 1]", value)
		}
	case "ROLLING_WINDOW":
		c.RollingWindow, err = parseInt(key, value, 1)
	case "PROCESS_NOISE":
		c.ProcessNoise, err = parsePositive(key, value)
	case "ACCEL_NOISE_RATIO":
		c.AccelNoiseRatio, err = parsePositive(key, value)
	case "MEASUREMENT_NOISE":
		c.MeasurementNoise, err = parsePositive(key, value)
	case "INITIAL_COVARIANCE":
		c.InitialCovariance, err = parsePositive(key, value)
	case "IDLE_THRESHOLD":
		c.IdleThreshold, err = parseFloat(key, value)
	case "IDLE_DURATION_MS":
		c.IdleDurationMS, err = parseInt(key, value, 0)
	case "MOTION_GAIN":
		c.MotionGain, err = parseFloat(key, value)
	case "GRAVITY_COMPENSATION":
		c.GravityCompensation, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid GRAVITY_COMPENSATION %q: %w", value, err)
		}

	// Sensor
	case "SENSOR_KIND":
		c.SensorKind, err = oneOf(key, value, SensorMPU9250, SensorSerial, SensorSim, SensorRandom)
	case "CALIBRATION_FILE":
		c.CalibrationFile = value
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, perr := strconv.ParseUint(value, 10, 8)
		if perr != nil || rangeVal > 3 {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: must be 0-3", value)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		baud, perr := strconv.ParseUint(value, 10, 32)
		if perr != nil || baud == 0 {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q", value)
		}
		c.SerialBaudRate = uint(baud)

	// Pointer
	case "POINTER_KIND":
		c.PointerKind, err = oneOf(key, value, PointerLog, PointerUinput)
	case "MOUSE_SPEED":
		c.MouseSpeed, err = parseFloat(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_SERVER":
		c.MQTTClientIDServer = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "TOPIC_PLOT":
		c.TopicPlot = value

	// Plotting
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1)
	case "PLOT_POINTS":
		c.PlotPoints, err = parseInt(key, value, 1)

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, err)
		}
	case "DISPLAY_UPDATE_INTERVAL_MS":
		c.DisplayUpdateInterval, err = parseInt(key, value, 1)

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

func parseInt(key, value string, lo int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n < lo {
		return 0, fmt.Errorf("invalid %s %q: must be >= %d", key, value, lo)
	}
	return n, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

func parsePositive(key, value string) (float64, error) {
	f, err := parseFloat(key, value)
	if err == nil && f <= 0 {
		err = fmt.Errorf("invalid %s %q: must be > 0", key, value)
	}
	return f, err
}

func oneOf(key, value string, allowed ...string) (string, error) {
	v := strings.ToLower(value)
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q: want one of %s", key, value, strings.Join(allowed, "|"))
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("SERVER_ADDRESS is required")
	}
	if c.SensorKind == SensorSerial && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required for SENSOR_KIND=serial")
	}
	if c.SensorKind == SensorMPU9250 && (c.IMUSPIDevice == "" || c.IMUCSPin == "") {
		return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required for SENSOR_KIND=mpu9250")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicPlot == "" {
		return fmt.Errorf("TOPIC_PLOT is required")
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c *Config) SampleInterval() time.Duration { return ms(c.SampleIntervalMS) }
func (c *Config) ConnectTimeout() time.Duration { return ms(c.ConnectTimeoutMS) }
func (c *Config) AckTimeout() time.Duration     { return ms(c.AckTimeoutMS) }
func (c *Config) ReconnectMax() time.Duration   { return ms(c.ReconnectMaxMS) }

// FilterParams builds the cascade parameters. The estimator step equals
// the sampling interval.
func (c *Config) FilterParams() filter.Params {
	var gravity imu.Vec3
	if c.GravityCompensation {
		gravity = imu.EarthGravity
	}
	return filter.Params{
		Gravity:      gravity,
		LowPassAlpha: c.LowPassAlpha,
		Window:       c.RollingWindow,
		Estimator: filter.EstimatorParams{
			Dt:                c.SampleInterval().Seconds(),
			ProcessNoise:      c.ProcessNoise,
			AccelNoiseRatio:   c.AccelNoiseRatio,
			MeasurementNoise:  c.MeasurementNoise,
			InitialCovariance: c.InitialCovariance,
			IdleThreshold:     c.IdleThreshold,
			IdleDuration:      ms(c.IdleDurationMS).Seconds(),
		},
	}
}

// MotionParams builds the client processor parameters.
func (c *Config) MotionParams() motion.Params {
	return motion.Params{
		Filter:         c.FilterParams(),
		SampleInterval: c.SampleInterval(),
		QueueCapacity:  c.QueueCapacity,
		PopTimeout:     ms(c.PopTimeoutMS),
		MotionGain:     c.MotionGain,
	}
}

// InitGlobal loads configPath and installs it as the global
// configuration. On error the previous configuration stays in place.
func InitGlobal(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
