package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/substudio/subtitle-translator/internal/jobs"
	"github.com/substudio/subtitle-translator/internal/storage"
	"github.com/substudio/subtitle-translator/internal/subtitle"
	"github.com/substudio/subtitle-translator/internal/translate"
	"github.com/substudio/subtitle-translator/pkg/log"
)

// Executor runs one translation job end to end: read each uploaded file,
// parse it, translate the texts as a batch, rebuild the entries and write
// the result in the file's own format. A failed file is recorded in the
// job results and the remaining files still run.
type Executor struct {
	engine          *translate.Engine
	files           *storage.Manager
	queue           *jobs.Queue
	fileConcurrency int
}

func NewExecutor(engine *translate.Engine, files *storage.Manager, queue *jobs.Queue, fileConcurrency int) *Executor {
	if fileConcurrency <= 0 {
		fileConcurrency = 1
	}
	return &Executor{
		engine:          engine,
		files:           files,
		queue:           queue,
		fileConcurrency: fileConcurrency,
	}
}

// Run implements jobs.Executor. It returns an error only when every file
// in the batch failed; partial failure leaves the job successful with the
// failures visible in Results.
func (e *Executor) Run(ctx context.Context, job *jobs.TranslationJob) error {
	log.Info("Translating job %s: %d files, %s -> %s via %s",
		job.ID, len(job.Files), job.Params.SourceLang, job.Params.TargetLang, job.Params.Service)

	results := make([]jobs.FileResult, len(job.Files))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fileConcurrency)
	for i, file := range job.Files {
		g.Go(func() error {
			results[i] = e.translateFile(gctx, job, file)
			e.queue.UpdateProgress(job.ID, jobs.Progress{
				TotalFiles:  len(job.Files),
				DoneFiles:   int(done.Add(1)),
				CurrentFile: file.Name,
			})
			return nil
		})
	}
	_ = g.Wait()

	e.queue.SetResults(job.ID, results)

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	if failed == len(results) && len(results) > 0 {
		return fmt.Errorf("all %d files failed", len(results))
	}
	log.Info("Job %s done: %d/%d files translated", job.ID, len(results)-failed, len(results))
	return nil
}

func (e *Executor) translateFile(ctx context.Context, job *jobs.TranslationJob, file jobs.FileInfo) jobs.FileResult {
	result := jobs.FileResult{Name: file.Name}

	raw, err := e.files.ReadUpload(job.UploadID, file.Name)
	if err != nil {
		log.Error("Job %s: failed to read %s: %v", job.ID, file.Name, err)
		result.Error = fmt.Sprintf("read upload: %v", err)
		return result
	}

	entries, err := subtitle.Parse(raw, file.Format)
	if err != nil {
		log.Error("Job %s: failed to parse %s: %v", job.ID, file.Name, err)
		result.Error = fmt.Sprintf("parse %s: %v", file.Format, err)
		return result
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = entry.Text
	}

	translated := e.engine.BatchTranslate(
		ctx,
		texts,
		job.Params.SourceLang,
		job.Params.TargetLang,
		job.Params.Service,
		job.Params.UseContext,
		job.Params.ContextWindow,
	)
	for i := range entries {
		entries[i].Text = translated[i]
	}

	out := subtitle.Format(entries, file.Format)
	path, err := e.files.WriteOutput(job.ID, file.Name, []byte(out))
	if err != nil {
		log.Error("Job %s: failed to write output for %s: %v", job.ID, file.Name, err)
		result.Error = fmt.Sprintf("write output: %v", err)
		return result
	}

	result.OutputPath = path
	result.EntryCount = len(entries)
	return result
}
