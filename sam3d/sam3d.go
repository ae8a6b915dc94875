package sam3d

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// bridge.py drives the external Inference object inside the cloned
// repository: it loads the model once, then answers JSON line requests
// on stdin with JSON line responses on stdout.
//
//go:embed bridge.py
var bridgeScript string

var pythonBinary = "python3"

type bridgeRequest struct {
	Image  string `json:"image"`
	Mask   string `json:"mask"`
	Output string `json:"output"`
	Seed   int    `json:"seed"`
}

type bridgeResponse struct {
	Ready bool   `json:"ready"`
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
}

// Inference wraps the external model's inference object. The external
// code owns the model architecture, the reconstruction pipeline and the
// PLY output format; this side only marshals file paths in and out.
type Inference struct {
	mu     sync.Mutex //the bridge handles one request at a time
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
}

func newInference(repoDir string, configPath string) (*Inference, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, errors.Errorf("config file not found at %s", configPath)
	}

	scriptPath := filepath.Join(os.TempDir(), "sam3d_bridge.py")
	if err := os.WriteFile(scriptPath, []byte(bridgeScript), 0644); err != nil {
		return nil, errors.Wrap(err, "couldn't write bridge script")
	}

	pythonPath := repoDir + string(os.PathListSeparator) + filepath.Join(repoDir, "notebook")

	cmd := exec.Command(pythonBinary, scriptPath, configPath)
	cmd.Env = append(os.Environ(), "PYTHONPATH="+pythonPath)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open bridge stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open bridge stdout")
	}

	log.Debug("[SAM3D] Loading model (config: ", configPath, ")...")
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "couldn't start bridge process")
	}

	inference := &Inference{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewScanner(stdout),
	}
	inference.stdout.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	resp, err := readResponse(inference.stdout)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait() //reap, otherwise the dead bridge lingers as a zombie
		return nil, err
	}
	if !resp.Ready {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, errors.Errorf("couldn't load model: %s", resp.Error)
	}

	log.Debug("[SAM3D] Model loaded")
	return inference, nil
}

func writeRequest(w io.Writer, req bridgeRequest) error {
	serialized, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "couldn't marshal bridge request")
	}
	if _, err := w.Write(append(serialized, '\n')); err != nil {
		return errors.Wrap(err, "couldn't write to bridge")
	}
	return nil
}

func readResponse(scanner *bufio.Scanner) (bridgeResponse, error) {
	var resp bridgeResponse
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return resp, errors.Wrap(err, "couldn't read from bridge")
		}
		return resp, errors.New("bridge process exited unexpectedly")
	}
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return resp, errors.Wrap(err, "couldn't unmarshal bridge response")
	}
	return resp, nil
}

// Reconstruct runs the external model on the given image + mask and lets
// it save the resulting gaussian splat to outputPath.
func (inference *Inference) Reconstruct(imagePath string, maskPath string, outputPath string, seed int) error {
	inference.mu.Lock()
	defer inference.mu.Unlock()

	req := bridgeRequest{
		Image:  imagePath,
		Mask:   maskPath,
		Output: outputPath,
		Seed:   seed,
	}
	if err := writeRequest(inference.stdin, req); err != nil {
		return err
	}

	resp, err := readResponse(inference.stdout)
	if err != nil {
		return err
	}
	if !resp.Ok {
		return errors.New(resp.Error)
	}
	return nil
}

func (inference *Inference) Close() {
	inference.stdin.Close()
	inference.cmd.Wait()
}

var (
	model     *Inference
	modelErr  error
	modelOnce sync.Once
)

// Load returns the process wide inference handle, starting the bridge on
// first use. Loading the model takes a while, so it only happens once a
// request actually needs it.
func Load(repoDir string, configPath string) (*Inference, error) {
	modelOnce.Do(func() {
		model, modelErr = newInference(repoDir, configPath)
	})
	return model, modelErr
}
