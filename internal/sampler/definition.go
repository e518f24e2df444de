package sampler

import (
	"encoding/json"
	"fmt"
	"os"
)

// Schedule fixes the tick rate for a sampler.
type Schedule struct {
	IntervalSec int `json:"interval_sec,omitempty"`
}

// RunPolicy controls how a sampler's tick behaves when a prior tick is
// still running.
type RunPolicy struct {
	OnOverlap string `json:"on_overlap,omitempty"`
}

func (p RunPolicy) onOverlapOrDefault() string {
	if p.OnOverlap == "" {
		return "skip"
	}
	return p.OnOverlap
}

// Target names the collector a sampler runs, either by bare collector_id
// or by fully qualified collector_ref ("<pack>:<collector>").
type Target struct {
	CollectorID  string `json:"collector_id,omitempty"`
	CollectorRef string `json:"collector_ref,omitempty"`
}

// SamplerDefinition describes what a sampler collects and how often.
// Sub-structs are pointers so that upsert patches can be merged field-wise
// over a default definition: a nil field means "keep the default".
type SamplerDefinition struct {
	SamplerID    string                 `json:"sampler_id,omitempty"`
	Enabled      *bool                  `json:"enabled,omitempty"`
	Schedule     *Schedule              `json:"schedule,omitempty"`
	RunPolicy    *RunPolicy             `json:"run_policy,omitempty"`
	ResultPolicy map[string]interface{} `json:"result_policy,omitempty"`
	Target       *Target                `json:"target,omitempty"`
}

// mergeOver returns def with patch's non-nil fields overriding it; caller
// fields win where present.
func (def SamplerDefinition) mergeOver(patch SamplerDefinition) SamplerDefinition {
	out := def
	if patch.Enabled != nil {
		out.Enabled = patch.Enabled
	}
	if patch.Schedule != nil {
		out.Schedule = patch.Schedule
	}
	if patch.RunPolicy != nil {
		out.RunPolicy = patch.RunPolicy
	}
	if patch.ResultPolicy != nil {
		out.ResultPolicy = patch.ResultPolicy
	}
	if patch.Target != nil {
		out.Target = patch.Target
	}
	return out
}

func (def SamplerDefinition) isEnabled() bool {
	return def.Enabled == nil || *def.Enabled
}

func (def SamplerDefinition) intervalSec() int {
	if def.Schedule == nil {
		return 0
	}
	return def.Schedule.IntervalSec
}

func (def SamplerDefinition) target() Target {
	if def.Target == nil {
		return Target{}
	}
	return *def.Target
}

func (def SamplerDefinition) runPolicy() RunPolicy {
	if def.RunPolicy == nil {
		return RunPolicy{}
	}
	return *def.RunPolicy
}

// defaultsFile is the on-disk shape of samplers/default.json.
type defaultsFile struct {
	Samplers []SamplerDefinition `json:"samplers"`
}

// loadDefaults reads samplers/default.json and indexes its definitions by
// sampler_id. Entries without a sampler_id are rejected so an upsert can
// never match a nameless default.
func loadDefaults(path string) (map[string]SamplerDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file defaultsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	defs := make(map[string]SamplerDefinition, len(file.Samplers))
	for i, def := range file.Samplers {
		if def.SamplerID == "" {
			return nil, fmt.Errorf("sampler defaults entry %d has no sampler_id", i)
		}
		defs[def.SamplerID] = def
	}
	return defs, nil
}
