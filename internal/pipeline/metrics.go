package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// WriteTextfile writes the run's step metrics in Prometheus text format,
// suitable for the node_exporter textfile collector. The file is replaced
// atomically, collectors must never see a half-written scrape.
func WriteTextfile(path, runID string, results []Result, success bool) error {
	registry := prometheus.NewRegistry()

	stepDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "community_build_step_duration_seconds",
		Help: "Duration of each build step in the last run",
	}, []string{"step"})
	stepSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "community_build_step_success",
		Help: "Whether each build step succeeded in the last run (1 = success)",
	}, []string{"step"})
	buildSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "community_build_success",
		Help: "Whether the last build run succeeded (1 = success)",
	})
	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "community_build_info",
		Help: "Identifier of the last build run",
	}, []string{"run_id"})

	registry.MustRegister(stepDuration, stepSuccess, buildSuccess, buildInfo)

	for _, result := range results {
		stepDuration.WithLabelValues(result.Step).Set(result.Duration.Seconds())
		if result.Err == nil {
			stepSuccess.WithLabelValues(result.Step).Set(1)
		} else {
			stepSuccess.WithLabelValues(result.Step).Set(0)
		}
	}
	if success {
		buildSuccess.Set(1)
	} else {
		buildSuccess.Set(0)
	}
	buildInfo.WithLabelValues(runID).Set(1)

	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".metrics-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	encoder := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
