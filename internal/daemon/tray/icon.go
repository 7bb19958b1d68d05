package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

const iconSize = 32

var (
	iconOnline  = renderIcon(1.0)
	iconOffline = renderIcon(0.4)
)

// renderIcon draws the Tailscale 3x3 dot grid as a PNG. The middle row and
// bottom center dot are solid, the rest are faint. opacity scales every dot.
func renderIcon(opacity float64) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))

	const (
		cell   = iconSize / 3
		radius = 4.5
	)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			alpha := 0.2
			if row == 1 || (row == 2 && col == 1) {
				alpha = 1.0
			}
			cx := float64(col*cell) + float64(cell)/2 + 0.5
			cy := float64(row*cell) + float64(cell)/2 + 0.5
			fillCircle(img, cx, cy, radius, uint8(255*alpha*opacity))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func fillCircle(img *image.NRGBA, cx, cy, r float64, alpha uint8) {
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: alpha})
			}
		}
	}
}

func iconFor(up bool) []byte {
	if up {
		return iconOnline
	}
	return iconOffline
}
