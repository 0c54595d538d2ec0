// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"strings"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func litInRows(img *image1bit.VerticalLSB, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := 0; x < Width; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderBlank(t *testing.T) {
	img := Render(nil)
	if b := img.Bounds(); b.Dx() != Width || b.Dy() != Height {
		t.Fatalf("bounds = %v", b)
	}
	if n := litInRows(img, 0, Height); n != 0 {
		t.Errorf("blank screen has %d lit pixels", n)
	}
}

func TestRenderPlacesLinesInRows(t *testing.T) {
	img := Render([]string{"", "dx  10 dy -20"})
	if n := litInRows(img, 0, lineStep-3); n != 0 {
		t.Errorf("empty first line lit %d pixels", n)
	}
	if n := litInRows(img, lineStep, 2*lineStep+3); n == 0 {
		t.Error("second line drew nothing")
	}
	if n := litInRows(img, 2*lineStep+4, Height); n != 0 {
		t.Errorf("rows below the text lit %d pixels", n)
	}
}

func TestRenderTruncates(t *testing.T) {
	long := strings.Repeat("M", MaxColumns+5)
	img := Render([]string{long, "a", "b", "c", "dropped"})
	// Glyphs past the last column would start at x >= 126.
	for y := 0; y < lineStep+3; y++ {
		for x := MaxColumns * 7; x < Width; x++ {
			if img.BitAt(x, y) == image1bit.On {
				t.Fatalf("pixel lit past the last column at (%d,%d)", x, y)
			}
		}
	}
}
