// Package pipeline sequences the build steps. The pipeline is strictly
// linear: the first failing step aborts the run and the steps after it
// never execute. There is no rollback; steps are expected to leave previous
// artifacts untouched until they succeed.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/li-boxuan/community/pkg/logging"
)

// Step is one named unit of the build
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result records the outcome of one executed step
type Result struct {
	Step     string
	Duration time.Duration
	Err      error
}

// Runner executes steps in order, fail-fast
type Runner struct {
	logger      *logging.Logger
	steps       []Step
	runID       string
	metricsPath string
}

// NewRunner creates a runner. metricsPath is where the Prometheus textfile
// goes after the run; empty disables metrics.
func NewRunner(logger *logging.Logger, metricsPath string) *Runner {
	runID := uuid.NewString()
	return &Runner{
		logger:      logger.WithField("run_id", runID),
		runID:       runID,
		metricsPath: metricsPath,
	}
}

// Add appends a step
func (r *Runner) Add(name string, fn func(ctx context.Context) error) {
	r.steps = append(r.steps, Step{Name: name, Run: fn})
}

// RunID returns the run's identifier
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes the steps in order. It returns the results of every step
// that ran; on failure the error names the failing step and the remaining
// steps are not executed. Concurrent runs against the same working
// directory are not safe, nothing locks the dataset file.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(r.steps))
	start := time.Now()

	for i, step := range r.steps {
		r.logger.Info("step starting", map[string]interface{}{
			"step": step.Name, "index": i + 1, "of": len(r.steps),
		})

		stepStart := time.Now()
		err := step.Run(ctx)
		result := Result{Step: step.Name, Duration: time.Since(stepStart), Err: err}
		results = append(results, result)

		if err != nil {
			r.logger.Error("step failed", map[string]interface{}{
				"step": step.Name, "duration": result.Duration.String(), "error": err.Error(),
			})
			r.writeMetrics(results, false)
			return results, fmt.Errorf("step %q failed: %w", step.Name, err)
		}

		r.logger.Info("step finished", map[string]interface{}{
			"step": step.Name, "duration": result.Duration.String(),
		})
	}

	r.logger.Info("build finished", map[string]interface{}{
		"steps": len(results), "duration": time.Since(start).String(),
	})
	r.writeMetrics(results, true)
	return results, nil
}

// writeMetrics is best effort; a build must not fail because the metrics
// file could not be written.
func (r *Runner) writeMetrics(results []Result, success bool) {
	if r.metricsPath == "" {
		return
	}
	if err := WriteTextfile(r.metricsPath, r.runID, results, success); err != nil {
		r.logger.Warn("failed to write build metrics", map[string]interface{}{
			"path": r.metricsPath, "error": err.Error(),
		})
	}
}
