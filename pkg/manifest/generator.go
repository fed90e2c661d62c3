package manifest

import (
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/bigram-stripes/pkg/mapreduce"
	"github.com/dtnitsch/bigram-stripes/pkg/storage"
)

// RunInfo is what the run command knows about a finished job.
type RunInfo struct {
	RunID           int64
	Inputs          []string
	InputSplits     int
	Reducers        int
	Combiner        bool
	InMapperCombine bool
	Duration        time.Duration
	Result          *mapreduce.Result
	PartRecords     []int64 // records written per part file
}

// CounterMap flattens job counters into named values.
func CounterMap(c mapreduce.Counters) map[string]int {
	return map[string]int{
		"map_input_lines":        int(c.MapInputLines),
		"map_output_records":     int(c.MapOutputRecords),
		"spills":                 int(c.Spills),
		"combine_input_records":  int(c.CombineInputRecords),
		"combine_output_records": int(c.CombineOutputRecords),
		"reduce_input_groups":    int(c.ReduceInputGroups),
		"reduce_input_records":   int(c.ReduceInputRecords),
		"reduce_output_records":  int(c.ReduceOutputRecords),
		"task_retries":           int(c.TaskRetries),
	}
}

// GenerateSummary builds the summary for a finished run and saves it into
// outputDir. Returns the path of the written file.
func GenerateSummary(info RunInfo, outputDir string, s *storage.Storage) (string, error) {
	summary := Summary{
		RunID:           info.RunID,
		GeneratedAt:     time.Now().Format(time.RFC3339),
		Inputs:          info.Inputs,
		InputSplits:     info.InputSplits,
		Reducers:        info.Reducers,
		Combiner:        info.Combiner,
		InMapperCombine: info.InMapperCombine,
		DurationSeconds: info.Duration.Seconds(),
	}
	if info.Result != nil {
		summary.Counters = CounterMap(info.Result.Counters)
		summary.TopLeftWords = mapreduce.TopKeys(mapreduce.Totals(info.Result), 25)
	}

	for i, records := range info.PartRecords {
		part := PartSummary{
			File:    storage.PartFileName(i),
			Records: records,
		}
		// Size is informational; a missing stat leaves it at zero.
		if stats, err := s.GetFileStats(filepath.Join(outputDir, part.File)); err == nil {
			part.SizeBytes = stats.SizeBytes
		}
		summary.Parts = append(summary.Parts, part)
	}

	data, err := yaml.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("error marshalling summary: %w", err)
	}

	path := filepath.Join(outputDir, SummaryFile)
	if err := s.SaveFile(path, data); err != nil {
		return "", fmt.Errorf("error saving summary: %w", err)
	}
	return path, nil
}

// LoadSummary reads a summary back from outputDir.
func LoadSummary(outputDir string, s *storage.Storage) (*Summary, error) {
	data, err := s.ReadFile(filepath.Join(outputDir, SummaryFile))
	if err != nil {
		return nil, err
	}
	var summary Summary
	if err := yaml.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("error parsing summary: %w", err)
	}
	return &summary, nil
}
