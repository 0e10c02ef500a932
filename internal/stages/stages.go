// Package stages declares the fixed five-stage script walked by the search
// progress animation, plus pure lookup helpers over it.
package stages

import "time"

// Icon identifies the glyph shown next to a stage title.
type Icon string

// Stage icons.
const (
	IconBrain    Icon = "brain"
	IconDatabase Icon = "database"
	IconChart    Icon = "chart"
	IconTarget   Icon = "target"
	IconSparkles Icon = "sparkles"
)

// Dynamic value keys referenced by sub-steps.
const (
	KeyApplicationsFound  = "applicationsFound"
	KeyAuthoritiesCovered = "authoritiesCovered"
	KeyTopMatchScore      = "topMatchScore"
)

// SubStep is a short status line within a stage.
// DynamicValue, when set, names an entry in the store's dynamic-value map;
// substitution into Text is left to the presentation layer.
type SubStep struct {
	ID           string        `json:"id" yaml:"id"`
	Text         string        `json:"text" yaml:"text"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	DynamicValue string        `json:"dynamic_value,omitempty" yaml:"dynamic_value,omitempty"`
}

// Stage is one phase of the simulated search.
type Stage struct {
	ID          int           `json:"id" yaml:"id"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description" yaml:"description"`
	Icon        Icon          `json:"icon" yaml:"icon"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Progress    int           `json:"progress" yaml:"progress"` // cumulative checkpoint, 0-100
	SubSteps    []SubStep     `json:"sub_steps" yaml:"sub_steps"`
}

var script = []Stage{
	{
		ID:          1,
		Title:       "Understanding Your Query",
		Description: "Interpreting what you're looking for",
		Icon:        IconBrain,
		Duration:    900 * time.Millisecond,
		Progress:    20,
		SubSteps: []SubStep{
			{ID: "1-1", Text: "Parsing search intent", Duration: 300 * time.Millisecond},
			{ID: "1-2", Text: "Identifying locations and development types", Duration: 300 * time.Millisecond},
			{ID: "1-3", Text: "Expanding planning terminology", Duration: 300 * time.Millisecond},
		},
	},
	{
		ID:          2,
		Title:       "Searching Database",
		Description: "Scanning planning applications across UK authorities",
		Icon:        IconDatabase,
		Duration:    1500 * time.Millisecond,
		Progress:    50,
		SubSteps: []SubStep{
			{ID: "2-1", Text: "Querying planning records", Duration: 500 * time.Millisecond},
			{ID: "2-2", Text: "Matching applications found", Duration: 600 * time.Millisecond, DynamicValue: KeyApplicationsFound},
			{ID: "2-3", Text: "Applying filters", Duration: 400 * time.Millisecond},
		},
	},
	{
		ID:          3,
		Title:       "Analyzing Results",
		Description: "Understanding decisions, timelines and outcomes",
		Icon:        IconChart,
		Duration:    800 * time.Millisecond,
		Progress:    70,
		SubSteps: []SubStep{
			{ID: "3-1", Text: "Local authorities covered", Duration: 400 * time.Millisecond, DynamicValue: KeyAuthoritiesCovered},
			{ID: "3-2", Text: "Extracting decision patterns", Duration: 400 * time.Millisecond},
		},
	},
	{
		ID:          4,
		Title:       "Ranking by Relevance",
		Description: "Scoring matches against your query",
		Icon:        IconTarget,
		Duration:    800 * time.Millisecond,
		Progress:    90,
		SubSteps: []SubStep{
			{ID: "4-1", Text: "Computing semantic similarity", Duration: 400 * time.Millisecond},
			{ID: "4-2", Text: "Top match score", Duration: 400 * time.Millisecond, DynamicValue: KeyTopMatchScore},
		},
	},
	{
		ID:          5,
		Title:       "Preparing Results",
		Description: "Getting everything ready for you",
		Icon:        IconSparkles,
		Duration:    600 * time.Millisecond,
		Progress:    100,
		SubSteps: []SubStep{
			{ID: "5-1", Text: "Generating summaries", Duration: 300 * time.Millisecond},
			{ID: "5-2", Text: "Finalizing results", Duration: 300 * time.Millisecond},
		},
	},
}

// Total returns the number of stages in the script.
func Total() int {
	return len(script)
}

// All returns a copy of the stage script in order.
func All() []Stage {
	out := make([]Stage, len(script))
	for i, s := range script {
		out[i] = s
		out[i].SubSteps = append([]SubStep(nil), s.SubSteps...)
	}
	return out
}

// Durations returns the nominal duration of each stage in order.
func Durations() []time.Duration {
	out := make([]time.Duration, len(script))
	for i, s := range script {
		out[i] = s.Duration
	}
	return out
}

// GetStageByID looks up a stage by its 1-based id.
func GetStageByID(id int) (Stage, bool) {
	if id < 1 || id > len(script) {
		return Stage{}, false
	}
	s := script[id-1]
	s.SubSteps = append([]SubStep(nil), s.SubSteps...)
	return s, true
}

// GetStageIndex converts a stage id to its zero-based index.
// The caller must ensure id is in range.
func GetStageIndex(id int) int {
	return id - 1
}

// CalculateProgress returns overall progress in [0,100] for the given
// position. The previous stage's checkpoint is the base, and the current
// stage contributes its checkpoint delta linearly by sub-step.
// Out-of-range stages report 0.
func CalculateProgress(currentStage, currentSubStep, totalSubSteps int) float64 {
	if currentStage < 1 || currentStage > len(script) {
		return 0
	}

	base := 0
	if currentStage > 1 {
		base = script[currentStage-2].Progress
	}
	delta := script[currentStage-1].Progress - base

	progress := float64(base)
	if totalSubSteps > 0 {
		sub := min(max(currentSubStep, 0), totalSubSteps)
		progress += float64(delta) * float64(sub) / float64(totalSubSteps)
	}

	return min(max(progress, 0), 100)
}

// DynamicValueKeys returns every dynamic value key referenced by the script.
func DynamicValueKeys() []string {
	var keys []string
	for _, s := range script {
		for _, sub := range s.SubSteps {
			if sub.DynamicValue != "" {
				keys = append(keys, sub.DynamicValue)
			}
		}
	}
	return keys
}
