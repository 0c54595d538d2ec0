// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display draws short status screens on an SSD1306 OLED.
package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_mouse/internal/log"
)

const (
	Width    = 128
	Height   = 64
	MaxLines = 4
	// 7 px wide glyphs
	MaxColumns = Width / 7
	lineStep   = 13
)

// Render draws up to MaxLines lines of text, one per 13 px row. Longer
// lines are cut at MaxColumns.
func Render(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i == MaxLines {
			break
		}
		if len(line) > MaxColumns {
			line = line[:MaxColumns]
		}
		drawer.Dot = fixed.P(0, lineStep*(i+1))
		drawer.DrawString(line)
	}
	return img
}

// Panel is an SSD1306 on the default I²C bus.
type Panel struct {
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

func OpenPanel() (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: periph init: %w", err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("display: open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("display: initialize SSD1306: %w", err)
	}
	log.Info("display: SSD1306 initialized", "bus", bus.String())
	return &Panel{bus: bus, dev: dev}, nil
}

// Show replaces the screen content with lines.
func (p *Panel) Show(lines []string) error {
	return p.dev.Draw(p.dev.Bounds(), Render(lines), image.Point{})
}

func (p *Panel) Close() error {
	if err := p.dev.Halt(); err != nil {
		log.Warn("display: halt failed", "err", err)
	}
	return p.bus.Close()
}
