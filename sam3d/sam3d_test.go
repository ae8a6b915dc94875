package sam3d

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRequestIsOneJsonLine(t *testing.T) {
	var buf bytes.Buffer

	req := bridgeRequest{
		Image:  "/tmp/run/image.png",
		Mask:   "/tmp/run/mask.png",
		Output: "/tmp/run/output_aa.ply",
		Seed:   42,
	}
	require.NoError(t, writeRequest(&buf, req))

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Equal(t, 1, strings.Count(line, "\n"))

	assert.Contains(t, line, `"seed":42`)
	assert.Contains(t, line, `"image":"/tmp/run/image.png"`)
}

func TestReadResponseReady(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader(`{"ready": true}` + "\n"))

	resp, err := readResponse(scanner)
	require.NoError(t, err)
	assert.True(t, resp.Ready)
	assert.False(t, resp.Ok)
}

func TestReadResponseError(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader(`{"error": "CUDA out of memory"}` + "\n"))

	resp, err := readResponse(scanner)
	require.NoError(t, err)
	assert.False(t, resp.Ok)
	assert.Equal(t, "CUDA out of memory", resp.Error)
}

func TestReadResponseBridgeExited(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader(""))

	_, err := readResponse(scanner)
	assert.Error(t, err)
}

// A bridge that dies before reporting ready must surface an error and
// leave no unreaped child behind.
func TestNewInferenceBridgeExitsBeforeReady(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("pipeline: {}"), 0644))

	pythonBinary = "false" //exits immediately without any output
	defer func() { pythonBinary = "python3" }()

	_, err := newInference(t.TempDir(), configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bridge process exited unexpectedly")
}

func TestNewInferenceBridgeReportsLoadError(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("pipeline: {}"), 0644))

	//stands in for a bridge whose model load throws
	pythonBinary = "echo" //prints its args, which don't parse as a response
	defer func() { pythonBinary = "python3" }()

	_, err := newInference(t.TempDir(), configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couldn't unmarshal bridge response")
}

func TestNewInferenceMissingConfig(t *testing.T) {
	_, err := newInference(t.TempDir(), "/does/not/exist/pipeline.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

// The embedded driver is what actually talks to the external code - make
// sure the go:embed didn't silently pick up an empty file and that the
// protocol keywords stay in sync with the Go side.
func TestBridgeScriptEmbedded(t *testing.T) {
	assert.Contains(t, bridgeScript, `"ready"`)
	assert.Contains(t, bridgeScript, `"ok"`)
	assert.Contains(t, bridgeScript, `"error"`)
	assert.Contains(t, bridgeScript, "from inference import Inference")
	assert.Contains(t, bridgeScript, "save_ply")
	assert.Contains(t, bridgeScript, "seed")
}
