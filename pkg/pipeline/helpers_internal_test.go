package pipeline

import (
	"fmt"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

func createManifest(total int) model.Manifest {
	manifest := make(model.Manifest, total)
	for i := range total {
		manifest[i] = model.Artifact{Sample: fmt.Sprintf("s%02d", i), Path: fmt.Sprintf("/raw/s%02d.fastq", i)}
	}

	return manifest
}
