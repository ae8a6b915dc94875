package rembg

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlphaMaskThresholdsAtZero(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0})   //background
	img.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 1})   //barely visible -> foreground
	img.SetNRGBA(2, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255}) //foreground

	mask := AlphaMask(img)

	assert.Equal(t, uint8(0), mask.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), mask.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(255), mask.GrayAt(2, 0).Y)
}

func TestAlphaMaskKeepsBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(2, 3, 6, 7))
	mask := AlphaMask(img)

	assert.Equal(t, img.Bounds(), mask.Bounds())
}

// Images without an alpha channel report full opacity everywhere, so the
// whole frame counts as foreground. The external model still gets a valid
// mask in that case instead of an empty one.
func TestAlphaMaskOpaqueImageIsAllForeground(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.RGBA{R: 1, G: 2, B: 3, A: 255})
		}
	}

	mask := AlphaMask(img)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, uint8(255), mask.GrayAt(x, y).Y)
		}
	}
}
