package datastructures

type ReconstructionRequest struct {
	Uuid    string `json:"uuid"`
	Image   string `json:"image"` //base64 encoded upload
	Created int64  `json:"created"`
}

type ReconstructionResult struct {
	Uuid     string `json:"uuid"`
	Ply      string `json:"ply,omitempty"` //base64 encoded PLY file
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}
