package commons

import (
	"github.com/gofrs/uuid"
)

const (
	//name of the REDIS queue the web frontend pushes reconstruction requests to
	ReconstructQueue = "reconstructme"

	//results are stored with this prefix + the request uuid as key
	ResultKeyPrefix = "reconstruct"

	//results are transient...it doesn't make sense to keep them longer than 1hr
	ResultExpirySeconds = 3600
)

func ResultKey(requestUuid string) string {
	return ResultKeyPrefix + requestUuid
}

func NewRunId() (string, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func OutputFilename(runId string) string {
	return "output_" + runId + ".ply"
}
