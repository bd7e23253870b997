package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/internal/fixture"
)

// NeedDef is one need the scripted extraction reports.
type NeedDef struct {
	Type       string  `yaml:"type"`
	Quantity   *int    `yaml:"quantity,omitempty"`
	Confidence float64 `yaml:"confidence"`
}

// ExtractionDef replaces the extractor output for a message.
type ExtractionDef struct {
	Needs      []NeedDef `yaml:"needs"`
	People     *int      `yaml:"people,omitempty"`
	Urgency    string    `yaml:"urgency"`
	Confidence float64   `yaml:"confidence"`
}

// ToModel converts the definition into extracted information.
func (e ExtractionDef) ToModel() model.ExtractedInformation {
	info := model.ExtractedInformation{
		Needs:                 make([]model.ExtractedNeed, 0, len(e.Needs)),
		PeopleAffected:        e.People,
		VulnerablePopulations: []model.VulnerablePopulation{},
		UrgencyLevel:          model.UrgencyLevel(e.Urgency),
		ExtractionConfidence:  e.Confidence,
	}
	if info.ExtractionConfidence == 0 {
		info.ExtractionConfidence = 0.9
	}
	if !info.UrgencyLevel.Valid() {
		info.UrgencyLevel = model.UrgencyMedium
	}
	for _, n := range e.Needs {
		info.Needs = append(info.Needs, model.ExtractedNeed{
			Type:       model.ParseNeedType(n.Type),
			Quantity:   n.Quantity,
			Confidence: n.Confidence,
		})
	}
	return info
}

// ConfirmDef is the dispatcher decision taken after a step. Resource "top"
// selects the best match and an empty resource rejects the request.
type ConfirmDef struct {
	Resource   string `yaml:"resource"`
	Dispatcher string `yaml:"dispatcher"`
	Reason     string `yaml:"reason,omitempty"`
}

// StepExpect holds the assertions for one step. Error kinds are "conflict",
// "transition", "not_found" and "validation".
type StepExpect struct {
	TopMatch      string `yaml:"top_match,omitempty"`
	Matches       *int   `yaml:"matches,omitempty"`
	Urgency       string `yaml:"urgency,omitempty"`
	Status        string `yaml:"status,omitempty"`
	ConfirmError  string `yaml:"confirm_error,omitempty"`
	CompleteError string `yaml:"complete_error,omitempty"`
}

// Step submits one message and optionally acts on the triaged request.
type Step struct {
	Message    string        `yaml:"message"`
	Extraction ExtractionDef `yaml:"extraction"`
	Confirm    *ConfirmDef   `yaml:"confirm,omitempty"`
	Complete   bool          `yaml:"complete,omitempty"`
	Expect     StepExpect    `yaml:"expect"`
}

// Expected holds the assertions checked once every step ran.
type Expected struct {
	Availability map[string]int `yaml:"availability,omitempty"`
	Dispatched   int            `yaml:"dispatched"`
	Overrides    int            `yaml:"overrides"`
}

// Scenario is a scripted dispatcher session against a fixed registry.
type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Resources   []fixture.Resource `yaml:"resources"`
	Steps       []Step             `yaml:"steps"`
	Expected    Expected           `yaml:"expected"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	seen := map[string]bool{}
	for i, st := range sc.Steps {
		if seen[st.Message] {
			return nil, fmt.Errorf("%s: step %d repeats message %q", path, i, st.Message)
		}
		seen[st.Message] = true
	}
	return &sc, nil
}
