package pipeline

import (
	"context"
	"path/filepath"

	"mixdown/internal/jobs"
)

const stemsArtifact = "stems.zip"

// Stems returns the job body that separates inputPath into instrument stems
// and packages them as a zip. Demucs reports no machine-readable progress,
// so the job walks staged heuristic values and then jumps on completion.
func (d *Deps) Stems(inputPath string) jobs.PipelineFunc {
	return func(ctx context.Context, job *jobs.JobContext) (string, error) {
		job.Log("preparing separation")
		job.Progress(0.1)

		stemsDir, err := job.Workspace.Mkdir("stems")
		if err != nil {
			return "", err
		}
		job.Progress(0.3)

		job.Log("running source separation")
		job.Progress(0.5)
		stems, err := d.Demucs.Separate(ctx, inputPath, stemsDir, job.Log)
		if err != nil {
			return "", err
		}
		job.Progress(0.9)

		job.Log("packaging stems")
		entries := make(map[string]string, len(stems))
		for name, path := range stems {
			entries[name+filepath.Ext(path)] = path
		}
		archive := job.Workspace.Path(stemsArtifact)
		if err := zipFiles(archive, entries); err != nil {
			return "", err
		}
		if err := requireOutput("stems", archive); err != nil {
			return "", err
		}
		return archive, nil
	}
}
