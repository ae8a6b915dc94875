package main

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/cebers1010/sam3d-v2/commons"
	"github.com/cebers1010/sam3d-v2/datastructures"
	"github.com/cebers1010/sam3d-v2/rembg"
	"github.com/cebers1010/sam3d-v2/sam3d"
	"github.com/disintegration/imaging"
	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const reconstructionSeed = 42

// Reconstructor runs the full pipeline for one queued job: decode the
// uploaded image, extract the foreground mask, hand both to the external
// model and collect the PLY file it writes.
type Reconstructor struct {
	repoDir    string
	configPath string
	remover    rembg.Remover
}

func NewReconstructor(repoDir string, configPath string, remover rembg.Remover) *Reconstructor {
	return &Reconstructor{
		repoDir:    repoDir,
		configPath: configPath,
		remover:    remover,
	}
}

func (r *Reconstructor) Process(job Job) datastructures.ReconstructionResult {
	result := datastructures.ReconstructionResult{Uuid: job.Request.Uuid}

	ply, filename, err := r.reconstruct(job.Request)
	if err != nil {
		log.Error("[Worker] Couldn't process request: ", err.Error())
		raven.CaptureError(err, nil)
		result.Error = err.Error()
		return result
	}

	result.Ply = ply
	result.Filename = filename
	return result
}

func (r *Reconstructor) reconstruct(request datastructures.ReconstructionRequest) (string, string, error) {
	if request.Image == "" {
		return "", "", errors.New("no image provided in input")
	}

	imageData, err := base64.StdEncoding.DecodeString(request.Image)
	if err != nil {
		return "", "", errors.Wrap(err, "couldn't decode image")
	}

	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", "", errors.Wrap(err, "couldn't decode image")
	}
	//imaging.Clone forces NRGBA, i.e the image ends up in RGB(A) no
	//matter what mode the upload was in
	img = imaging.Clone(img)

	log.Debug("[Worker] Removing background...")
	mask, err := r.remover.Mask(img)
	if err != nil {
		return "", "", err
	}

	workDir, err := os.MkdirTemp("", "reconstruct-"+request.Uuid)
	if err != nil {
		return "", "", errors.Wrap(err, "couldn't create work directory")
	}
	defer os.RemoveAll(workDir)

	imagePath := filepath.Join(workDir, "image.png")
	if err := imaging.Save(img, imagePath); err != nil {
		return "", "", errors.Wrap(err, "couldn't save image")
	}
	maskPath := filepath.Join(workDir, "mask.png")
	if err := imaging.Save(mask, maskPath); err != nil {
		return "", "", errors.Wrap(err, "couldn't save mask")
	}

	model, err := sam3d.Load(r.repoDir, r.configPath)
	if err != nil {
		return "", "", err
	}

	log.Debug("[Worker] Running inference...")
	filename := commons.OutputFilename(request.Uuid)
	outputPath := filepath.Join(workDir, filename)
	if err := model.Reconstruct(imagePath, maskPath, outputPath, reconstructionSeed); err != nil {
		return "", "", err
	}

	plyContent, err := os.ReadFile(outputPath)
	if err != nil {
		return "", "", errors.Wrap(err, "couldn't read output file")
	}

	return base64.StdEncoding.EncodeToString(plyContent), filename, nil
}
