package setup

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	RepoUrl        = "https://github.com/facebookresearch/sam-3d-objects.git"
	RepoDir        = "sam-3d-objects"
	CheckpointRepo = "facebook/sam-3d-objects"
	CheckpointDir  = "checkpoints/hf"

	MaskModelUrl = "https://github.com/danielgatis/rembg/releases/download/v0.0.0/u2netp.onnx"
)

// RepoPath returns where the external repository is (or will be) cloned.
func RepoPath(baseDir string) string {
	return filepath.Join(baseDir, RepoDir)
}

func checkpointPath(baseDir string) string {
	return filepath.Join(RepoPath(baseDir), filepath.FromSlash(CheckpointDir))
}

// ConfigPath returns the location of the pipeline config the external
// inference code is constructed from. The checkpoint snapshot ships it.
func ConfigPath(baseDir string) string {
	return filepath.Join(checkpointPath(baseDir), "pipeline.yaml")
}

func MaskModelPath(baseDir string) string {
	return filepath.Join(baseDir, "models", "u2netp.onnx")
}

// CloneRepo fetches the external model repository if it isn't there yet.
func CloneRepo(baseDir string) error {
	target := RepoPath(baseDir)
	if _, err := os.Stat(target); err == nil {
		log.Debug("[Setup] Repository ", RepoDir, " already cloned")
		return nil
	}

	log.Debug("[Setup] Cloning ", RepoUrl, "...")
	cmd := exec.Command("git", "clone", RepoUrl, target)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "couldn't clone %s", RepoUrl)
	}
	return nil
}

// DownloadCheckpoints mirrors the pretrained weights into the clone. The
// checkpoint repo is gated, so a missing/invalid HF_TOKEN is the most
// likely cause of failure here.
func DownloadCheckpoints(baseDir string) error {
	target := checkpointPath(baseDir)
	if err := os.MkdirAll(target, 0755); err != nil {
		return errors.Wrap(err, "couldn't create checkpoint directory")
	}

	hubClient := NewHubClient(os.Getenv("HF_TOKEN"))
	return hubClient.Snapshot(CheckpointRepo, target)
}

func DownloadMaskModel(baseDir string) error {
	hubClient := NewHubClient("")
	return hubClient.DownloadTo(MaskModelUrl, MaskModelPath(baseDir))
}

// Run performs the whole environment bootstrap: clone the external
// repository, download the pretrained checkpoints and the background
// removal model. The checkpoint download is best effort - the model load
// will fail later anyway if the config is missing, and a clear hint about
// the token is more useful at that point than refusing to start.
func Run(baseDir string) error {
	log.Info("[Setup] Starting SAM3D-Objects setup...")

	if err := CloneRepo(baseDir); err != nil {
		return err
	}

	log.Info("[Setup] Downloading checkpoints...")
	if err := DownloadCheckpoints(baseDir); err != nil {
		log.Error("[Setup] Error downloading checkpoints: ", err.Error())
		log.Error("[Setup] Ensure HF_TOKEN is set and the model license is accepted")
	} else {
		log.Info("[Setup] Checkpoints downloaded successfully")
	}

	if err := DownloadMaskModel(baseDir); err != nil {
		return err
	}
	return nil
}
