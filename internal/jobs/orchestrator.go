/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package jobs drives print jobs through their lifecycle. A job moves
// pending -> printing -> completed|failed exactly once; history is an
// append-only audit log, so retrying a failed job means creating a new one.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"labelpress/internal/domain"
	"labelpress/internal/geom"
	applog "labelpress/internal/log"
	"labelpress/internal/render"
	"labelpress/internal/sink"
)

// TemplateSource supplies the template a job prints.
type TemplateSource interface {
	GetTemplate(id string) (domain.LabelTemplate, error)
}

// History persists job state. storage.JobLog implements it.
type History interface {
	AppendJob(ctx context.Context, job domain.PrintJob) error
	UpdateJobStatus(ctx context.Context, id string, status domain.JobStatus, jobErr string) error
	GetJob(ctx context.Context, id string) (domain.PrintJob, error)
	ListJobs(ctx context.Context) ([]domain.PrintJob, error)
}

// DataFunc resolves one record id to its label data. Supplied by the
// surrounding order system; this package never fetches records itself.
type DataFunc func(ctx context.Context, recordID string) (domain.LabelData, error)

// Orchestrator creates and executes print jobs.
type Orchestrator struct {
	templates TemplateSource
	history   History
	data      DataFunc
	sink      sink.Sink
	log       *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New wires an orchestrator. All collaborators are required.
func New(templates TemplateSource, history History, data DataFunc, s sink.Sink) (*Orchestrator, error) {
	if templates == nil || history == nil || data == nil || s == nil {
		return nil, errors.New("orchestrator requires templates, history, data and sink")
	}
	return &Orchestrator{
		templates: templates,
		history:   history,
		data:      data,
		sink:      s,
		log:       applog.WithComponent("jobs"),
		inFlight:  make(map[string]struct{}),
	}, nil
}

// CreateJob validates the request, appends a pending job to history and
// returns it synchronously. Validation failures reject before any state
// is created.
func (o *Orchestrator) CreateJob(ctx context.Context, templateID string, recordIDs []string, copies int) (domain.PrintJob, error) {
	if copies < 1 {
		return domain.PrintJob{}, fmt.Errorf("copies must be at least 1, got %d", copies)
	}
	if len(recordIDs) == 0 {
		return domain.PrintJob{}, errors.New("at least one record id is required")
	}
	if _, err := o.templates.GetTemplate(templateID); err != nil {
		return domain.PrintJob{}, fmt.Errorf("load template: %w", err)
	}
	job := domain.PrintJob{
		ID:         domain.NewID("job"),
		TemplateID: templateID,
		RecordIDs:  append([]string(nil), recordIDs...),
		Copies:     copies,
		Status:     domain.JobPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.history.AppendJob(ctx, job); err != nil {
		return domain.PrintJob{}, fmt.Errorf("append job: %w", err)
	}
	o.log.Info("job created",
		slog.String("job", job.ID),
		slog.String("template", templateID),
		slog.Int("records", len(recordIDs)),
		slog.Int("copies", copies))
	return job, nil
}

// ExecuteJob runs a pending job to a terminal state: it promotes the job
// to printing, renders template x records x copies and hands each document
// to the sink. Sink errors, data errors and context cancellation are all
// captured into the job record as a failed outcome; they are never
// returned to the caller. The returned error covers orchestration problems
// only (unknown job, job not pending, history write failures).
func (o *Orchestrator) ExecuteJob(ctx context.Context, jobID string, settings domain.PrintSettings) error {
	// history reads and status writes must land even when the job's own
	// context is already cancelled; only the print run observes ctx
	bg := context.WithoutCancel(ctx)
	job, err := o.history.GetJob(bg, jobID)
	if err != nil {
		return err
	}
	if job.Status != domain.JobPending {
		return fmt.Errorf("job %s is %s, only pending jobs can execute", jobID, job.Status)
	}

	o.mu.Lock()
	if _, busy := o.inFlight[jobID]; busy {
		o.mu.Unlock()
		return fmt.Errorf("job %s is already executing", jobID)
	}
	o.inFlight[jobID] = struct{}{}
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.inFlight, jobID)
		o.mu.Unlock()
	}()

	if err := o.history.UpdateJobStatus(bg, jobID, domain.JobPrinting, ""); err != nil {
		return fmt.Errorf("promote job: %w", err)
	}
	l := o.log.With(slog.String("job", jobID))
	l.Info("job printing", slog.Int("records", len(job.RecordIDs)), slog.Int("copies", job.Copies))

	if runErr := o.run(ctx, job, settings); runErr != nil {
		l.Warn("job failed", slog.Any("err", runErr))
		if err := o.history.UpdateJobStatus(bg, jobID, domain.JobFailed, runErr.Error()); err != nil {
			return fmt.Errorf("record failure: %w", err)
		}
		return nil
	}
	if err := o.history.UpdateJobStatus(bg, jobID, domain.JobCompleted, ""); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	l.Info("job completed")
	return nil
}

func (o *Orchestrator) run(ctx context.Context, job domain.PrintJob, settings domain.PrintSettings) error {
	tpl, err := o.templates.GetTemplate(job.TemplateID)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}
	for _, recordID := range job.RecordIDs {
		data, err := o.data(ctx, recordID)
		if err != nil {
			return fmt.Errorf("record %s: %w", recordID, err)
		}
		tree := data.Tree()
		doc := render.RenderTemplate(tpl, tree, geom.PxPerMM)
		for c := 0; c < job.Copies; c++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := o.sink.Print(ctx, doc, settings); err != nil {
				return err
			}
		}
	}
	return nil
}

// Start executes the job asynchronously and delivers the terminal job
// record on the returned channel. Validation happens before the goroutine
// launches so an unknown or non-pending job fails fast.
func (o *Orchestrator) Start(ctx context.Context, jobID string, settings domain.PrintSettings) (<-chan domain.PrintJob, error) {
	job, err := o.history.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobPending {
		return nil, fmt.Errorf("job %s is %s, only pending jobs can execute", jobID, job.Status)
	}
	done := make(chan domain.PrintJob, 1)
	go func() {
		defer close(done)
		if err := o.ExecuteJob(ctx, jobID, settings); err != nil {
			o.log.Error("job execution error", slog.String("job", jobID), slog.Any("err", err))
		}
		final, err := o.history.GetJob(context.WithoutCancel(ctx), jobID)
		if err != nil {
			return
		}
		done <- final
	}()
	return done, nil
}

// GetJob exposes job lookup for pollers.
func (o *Orchestrator) GetJob(ctx context.Context, id string) (domain.PrintJob, error) {
	return o.history.GetJob(ctx, id)
}

// ListJobs exposes the full history, newest first.
func (o *Orchestrator) ListJobs(ctx context.Context) ([]domain.PrintJob, error) {
	return o.history.ListJobs(ctx)
}
