package rembg

import (
	"image"
	"image/color"
	"sync"

	"github.com/josuedeavila/rmbg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Remover computes a boolean foreground mask for an image. White pixels
// in the returned grayscale image are foreground.
type Remover interface {
	Mask(img image.Image) (*image.Gray, error)
}

// OnnxRemover removes the background with a u2netp ONNX model. The
// engine is loaded lazily on first use.
type OnnxRemover struct {
	modelPath string

	once   sync.Once
	engine *rmbg.RemBG
	err    error
}

func NewOnnxRemover(modelPath string) *OnnxRemover {
	return &OnnxRemover{modelPath: modelPath}
}

func (r *OnnxRemover) load() (*rmbg.RemBG, error) {
	r.once.Do(func() {
		log.Debug("[RemBG] Loading background removal model...")
		r.engine, r.err = rmbg.New(&rmbg.Config{ModelPath: r.modelPath})
		if r.err != nil {
			r.err = errors.Wrap(r.err, "couldn't load background removal model")
		}
	})
	return r.engine, r.err
}

func (r *OnnxRemover) Mask(img image.Image) (*image.Gray, error) {
	engine, err := r.load()
	if err != nil {
		return nil, err
	}

	removed, err := engine.RemoveBackground(img)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't remove background")
	}

	return AlphaMask(removed), nil
}

// AlphaMask thresholds the alpha channel: any pixel that isn't fully
// transparent counts as foreground.
func AlphaMask(img image.Image) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a > 0 {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}
