package manifest

// SummaryFile is the name of the summary written into the output directory.
// The leading underscore keeps it out of any later run that reads the
// directory as input.
const SummaryFile = "_summary.yaml"

// Summary is the overview of one run, written next to its part files.
// It lets a reader see what produced an output directory without opening
// the run history database.
type Summary struct {
	RunID           int64          `yaml:"run_id,omitempty"`
	GeneratedAt     string         `yaml:"generated_at"`
	Inputs          []string       `yaml:"inputs"`
	InputSplits     int            `yaml:"input_splits"`
	Reducers        int            `yaml:"reducers"`
	Combiner        bool           `yaml:"combiner"`
	InMapperCombine bool           `yaml:"in_mapper_combining"`
	DurationSeconds float64        `yaml:"duration_seconds"`
	Counters        map[string]int `yaml:"counters"`
	TopLeftWords    []string       `yaml:"top_left_words"`
	Parts           []PartSummary  `yaml:"parts"`
}

// PartSummary describes one reducer's output file.
type PartSummary struct {
	File      string `yaml:"file"`
	Records   int64  `yaml:"records"`
	SizeBytes int64  `yaml:"size_bytes"`
}
