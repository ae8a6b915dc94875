package main

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/cebers1010/sam3d-v2/datastructures"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRemover struct{}

func (r *failingRemover) Mask(img image.Image) (*image.Gray, error) {
	return nil, errors.New("couldn't load background removal model")
}

func encodedTestImage(t *testing.T) string {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestProcessMissingImage(t *testing.T) {
	reconstructor := NewReconstructor("sam-3d-objects", "pipeline.yaml", &failingRemover{})

	result := reconstructor.Process(Job{Request: datastructures.ReconstructionRequest{Uuid: "aa"}})

	assert.Equal(t, "aa", result.Uuid)
	assert.Equal(t, "no image provided in input", result.Error)
	assert.Empty(t, result.Ply)
}

func TestProcessInvalidBase64(t *testing.T) {
	reconstructor := NewReconstructor("sam-3d-objects", "pipeline.yaml", &failingRemover{})

	request := datastructures.ReconstructionRequest{Uuid: "aa", Image: "not base64!!"}
	result := reconstructor.Process(Job{Request: request})

	assert.Contains(t, result.Error, "couldn't decode image")
}

func TestProcessNotAnImage(t *testing.T) {
	reconstructor := NewReconstructor("sam-3d-objects", "pipeline.yaml", &failingRemover{})

	request := datastructures.ReconstructionRequest{
		Uuid:  "aa",
		Image: base64.StdEncoding.EncodeToString([]byte("definitely not a png")),
	}
	result := reconstructor.Process(Job{Request: request})

	assert.Contains(t, result.Error, "couldn't decode image")
}

func TestProcessSurfacesMaskError(t *testing.T) {
	reconstructor := NewReconstructor("sam-3d-objects", "pipeline.yaml", &failingRemover{})

	request := datastructures.ReconstructionRequest{Uuid: "aa", Image: encodedTestImage(t)}
	result := reconstructor.Process(Job{Request: request})

	assert.Equal(t, "aa", result.Uuid)
	assert.Contains(t, result.Error, "couldn't load background removal model")
	assert.Empty(t, result.Ply)
}
