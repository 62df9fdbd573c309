package render

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/internal/scheduler"
	"github.com/clipforge/api/internal/template"
	"github.com/clipforge/api/pkg/response"
)

// Progress milestones. Fetching advances from 0 toward fetchDone in
// proportion to completed downloads; the later stages are coarse.
const (
	progressFetchDone  = 30
	progressPlanBuilt  = 40
	progressEncodeDone = 95
)

// Engine runs one render job end to end: fetch assets, build the clip
// plan, invoke the encoder. It satisfies the scheduler's Runner.
type Engine struct {
	templates   *template.Store
	fetcher     *Fetcher
	encoder     *Encoder
	tempDir     string
	defaultMode model.RenderMode
}

func NewEngine(templates *template.Store, fetcher *Fetcher, encoder *Encoder, tempDir string, defaultMode model.RenderMode) *Engine {
	return &Engine{
		templates:   templates,
		fetcher:     fetcher,
		encoder:     encoder,
		tempDir:     tempDir,
		defaultMode: defaultMode,
	}
}

// Run executes the pipeline for one admitted job. Intermediate files
// live in a per-job directory that is removed on every exit path; only
// the final video survives, at <tempDir>/<job_id>.mp4.
func (e *Engine) Run(ctx context.Context, job model.Job, report scheduler.ProgressFunc) (scheduler.Result, error) {
	tpl, err := e.templates.Get(job.Request.TemplateID)
	if err != nil {
		return scheduler.Result{}, Wrap(response.CodeTemplateNotFound, err,
			"template %s not found", job.Request.TemplateID)
	}

	jobDir := filepath.Join(e.tempDir, "work_"+job.ID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return scheduler.Result{}, Wrap(response.CodeServerError, err, "create job dir: %v", err)
	}
	defer func() {
		if err := os.RemoveAll(jobDir); err != nil {
			log.Printf("Job %s: failed to remove work dir: %v", job.ID, err)
		}
	}()

	assets, err := e.fetcher.FetchImages(ctx, job.Request.Images, jobDir, func(done, total int) {
		if total > 0 {
			report(done * progressFetchDone / total)
		}
	})
	if err != nil {
		return scheduler.Result{}, err
	}

	var audioPath string
	if job.Request.Audio != nil {
		audioPath, err = e.fetcher.FetchAudio(ctx, job.Request.Audio.URL, jobDir)
		if err != nil {
			return scheduler.Result{}, err
		}
	}
	report(progressFetchDone)

	spec, err := BuildClipSpec(BuildInput{
		Template:    tpl,
		Assets:      assets,
		CustomText:  job.Request.CustomText,
		AudioPath:   audioPath,
		Audio:       job.Request.Audio,
		Mode:        job.Request.RenderMode,
		DefaultMode: e.defaultMode,
	})
	if err != nil {
		return scheduler.Result{}, err
	}
	report(progressPlanBuilt)

	outputPath := filepath.Join(e.tempDir, job.ID+".mp4")
	if err := e.encoder.Encode(ctx, spec, outputPath); err != nil {
		os.Remove(outputPath)
		return scheduler.Result{}, err
	}
	report(progressEncodeDone)

	info, err := os.Stat(outputPath)
	if err != nil {
		return scheduler.Result{}, Wrap(response.CodeServerError, err, "stat output: %v", err)
	}

	return scheduler.Result{
		OutputPath:      outputPath,
		FileSizeBytes:   info.Size(),
		DurationSeconds: spec.TotalDuration,
	}, nil
}
