package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PatientTypeConfig describes one diagnosis row of the patient-type table:
// its family ("A", "B" or "EM"), the arrival offset distribution within each
// hour, and the service-time distributions for surgery and nursing.
// A zero OperationTimeMean means the diagnosis needs no surgery.
type PatientTypeConfig struct {
	Type              string       `yaml:"type"`
	Diagnosis         string       `yaml:"diagnosis"`
	Arrival           Distribution `yaml:"arrival"`
	OperationTimeMean float64      `yaml:"operation_time_mean"`
	OperationTimeStd  float64      `yaml:"operation_time_std"`
	NursingTimeMean   float64      `yaml:"nursing_time_mean"`
	NursingTimeStd    float64      `yaml:"nursing_time_std"`
}

type patientTypesFile struct {
	PatientTypes []PatientTypeConfig `yaml:"patient_types"`
}

// LoadPatientTypes reads and validates the patient-type table.
func LoadPatientTypes(path string) ([]PatientTypeConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patient types: %w", err)
	}
	var file patientTypesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse patient types: %w", err)
	}
	if len(file.PatientTypes) == 0 {
		return nil, fmt.Errorf("patient types %s: empty table", path)
	}
	for _, pt := range file.PatientTypes {
		if err := pt.Arrival.Validate(); err != nil {
			return nil, fmt.Errorf("patient type %s: %w", pt.Diagnosis, err)
		}
	}
	return file.PatientTypes, nil
}

// ResourceSpec declares one resource type: its fixed unit count and the
// initial availability timestamp of every unit.
type ResourceSpec struct {
	ResourceType string  `yaml:"resource_type"`
	Capacity     int     `yaml:"capacity"`
	AvailableAt  float64 `yaml:"available_at"`
}

// ResourceConfig is the full resource capacity table.
type ResourceConfig struct {
	Resources []ResourceSpec `yaml:"resources"`
}

// LoadResources reads and validates the resource capacity table.
func LoadResources(path string) (*ResourceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resources: %w", err)
	}
	var cfg ResourceConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse resources: %w", err)
	}
	for _, r := range cfg.Resources {
		if !KnownResourceType(r.ResourceType) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownResourceType, r.ResourceType)
		}
		if r.Capacity <= 0 {
			return nil, fmt.Errorf("resource %s: capacity must be positive", r.ResourceType)
		}
	}
	return &cfg, nil
}

// Capacities returns the capacity table keyed by resource type.
func (c *ResourceConfig) Capacities() map[string]int {
	caps := make(map[string]int, len(c.Resources))
	for _, r := range c.Resources {
		caps[r.ResourceType] = r.Capacity
	}
	return caps
}
