package setup

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultHubBaseUrl = "https://huggingface.co"

type treeEntry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// HubClient downloads model snapshots from the Hugging Face Hub.
// Gated repos need an access token (HF_TOKEN).
type HubClient struct {
	client  *resty.Client
	baseUrl string
	token   string
}

func NewHubClient(token string) *HubClient {
	return &HubClient{
		client:  resty.New(),
		baseUrl: defaultHubBaseUrl,
		token:   token,
	}
}

func (c *HubClient) request() *resty.Request {
	req := c.client.R()
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	return req
}

func (c *HubClient) listFiles(repoId string) ([]treeEntry, error) {
	var entries []treeEntry

	url := c.baseUrl + "/api/models/" + repoId + "/tree/main?recursive=true"
	resp, err := c.request().SetResult(&entries).Get(url)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't list repo files")
	}
	if resp.IsError() {
		return nil, errors.Errorf("couldn't list repo files: %s returned %s", url, resp.Status())
	}

	var files []treeEntry
	for _, entry := range entries {
		if entry.Type == "file" {
			files = append(files, entry)
		}
	}
	return files, nil
}

func (c *HubClient) downloadFile(repoId string, entry treeEntry, localDir string) error {
	target := filepath.Join(localDir, filepath.FromSlash(entry.Path))

	//skip files that are already fully downloaded
	if info, err := os.Stat(target); err == nil && info.Size() == entry.Size {
		log.Debug("[Setup] Skipping ", entry.Path, " (already downloaded)")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrap(err, "couldn't create checkpoint directory")
	}

	url := c.baseUrl + "/" + repoId + "/resolve/main/" + entry.Path
	if err := c.fetchFile(url, target); err != nil {
		return errors.Wrapf(err, "couldn't download %s", entry.Path)
	}
	return nil
}

// fetchFile downloads url into target via a temp file, so an error
// response body never ends up at the target path looking like a
// complete download.
func (c *HubClient) fetchFile(url string, target string) error {
	tmp := target + ".part"

	resp, err := c.request().SetOutput(tmp).Get(url)
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if resp.IsError() {
		os.Remove(tmp)
		return errors.Errorf("%s returned %s", url, resp.Status())
	}

	return os.Rename(tmp, target)
}

// Snapshot mirrors all files of the given model repo into localDir,
// preserving the repo's directory structure.
func (c *HubClient) Snapshot(repoId string, localDir string) error {
	files, err := c.listFiles(repoId)
	if err != nil {
		return err
	}

	for _, entry := range files {
		if strings.HasPrefix(entry.Path, ".") {
			continue
		}
		log.Debug("[Setup] Downloading ", entry.Path, "...")
		if err := c.downloadFile(repoId, entry, localDir); err != nil {
			return err
		}
	}
	return nil
}

// DownloadTo fetches a single file from a plain URL (used for the
// background removal model which isn't hosted on the Hub).
func (c *HubClient) DownloadTo(url string, target string) error {
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrap(err, "couldn't create model directory")
	}

	if err := c.fetchFile(url, target); err != nil {
		return errors.Wrapf(err, "couldn't download %s", url)
	}
	return nil
}
