package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/detreview/internal/eval/metrics"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	DatasetPath  string  `yaml:"datasetpath"`
	IoUThreshold float64 `yaml:"iouthreshold"`
	Concurrency  int     `yaml:"concurrency"`
	SampleSize   int     `yaml:"samplesize"`
	Timestamp    string  `yaml:"timestamp"`
}

// EvalResult represents a single evaluation result
type EvalResult struct {
	Identifier  string                    `yaml:"identifier"`
	GTFormat    string                    `yaml:"gtformat"`
	TP          int                       `yaml:"tp"`
	FP          int                       `yaml:"fp"`
	FN          int                       `yaml:"fn"`
	Precision   float64                   `yaml:"precision"`
	Recall      float64                   `yaml:"recall"`
	F1          float64                   `yaml:"f1"`
	MeanIoU     float64                   `yaml:"meaniou"`
	Diagnostics []string                  `yaml:"diagnostics,omitempty"`
	PerClass    map[string]metrics.Scores `yaml:"perclass,omitempty"`
}

// EvalRecord represents the complete evaluation run record
type EvalRecord struct {
	Config  EvalConfig     `yaml:"config"`
	Totals  metrics.Scores `yaml:"totals"`
	Results []EvalResult   `yaml:"results"`
	Failed  []string       `yaml:"failed,omitempty"`
}

// BuildRecord converts batch results into the YAML run record
func BuildRecord(cfg EvalConfig, results []metrics.EvaluationResult) EvalRecord {
	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}
	cfg.SampleSize = len(results)

	record := EvalRecord{
		Config:  cfg,
		Results: make([]EvalResult, 0, len(results)),
	}

	var tp, fp, fn int
	for _, r := range results {
		if r.Error != "" || r.Result == nil {
			record.Failed = append(record.Failed, fmt.Sprintf("%s: %s", r.ID, r.Error))
			continue
		}

		m := r.Result.Metrics
		tp += m.TP
		fp += m.FP
		fn += m.FN

		evalResult := EvalResult{
			Identifier: r.ID,
			GTFormat:   r.GTFormat,
			TP:         m.TP,
			FP:         m.FP,
			FN:         m.FN,
			Precision:  m.Precision,
			Recall:     m.Recall,
			F1:         m.F1,
			MeanIoU:    r.Result.MeanIoU,
			PerClass:   r.Result.PerClass,
		}
		evalResult.Diagnostics = append(evalResult.Diagnostics, r.GTDiagnostics...)
		evalResult.Diagnostics = append(evalResult.Diagnostics, r.DetectionDiagnostics...)

		record.Results = append(record.Results, evalResult)
	}
	record.Totals = metrics.NewScores(tp, fp, fn)

	return record
}

// SaveToYAML writes the run record to dir/eval-<timestamp>.yaml and returns
// the file's path
func SaveToYAML(dir string, cfg EvalConfig, results []metrics.EvaluationResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	record := BuildRecord(cfg, results)
	filename := filepath.Join(dir, fmt.Sprintf("eval-%s.yaml", record.Config.Timestamp))

	data, err := yaml.Marshal(&record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}
