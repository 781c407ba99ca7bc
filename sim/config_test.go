package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPatientTypes_ValidTable(t *testing.T) {
	// GIVEN a well-formed patient type table
	path := writeTempConfig(t, "types.yaml", `
patient_types:
  - type: A
    diagnosis: A1
    arrival: { dist: uniform, min: 0, max: 1 }
    nursing_time_mean: 4
    nursing_time_std: 0.5
  - type: EM
    diagnosis: ER
    arrival: { dist: constant, value: 0.5 }
`)

	// WHEN it is loaded
	types, err := LoadPatientTypes(path)

	// THEN both rows come back with their distributions intact
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "A1", types[0].Diagnosis)
	assert.Equal(t, "uniform", types[0].Arrival.Dist)
	assert.Equal(t, 4.0, types[0].NursingTimeMean)
	assert.Equal(t, "EM", types[1].Type)
}

func TestLoadPatientTypes_EmptyTable_Errors(t *testing.T) {
	path := writeTempConfig(t, "types.yaml", `patient_types: []`)
	_, err := LoadPatientTypes(path)
	assert.Error(t, err)
}

func TestLoadPatientTypes_BadDistribution_Errors(t *testing.T) {
	// GIVEN a row with an unknown distribution kind
	path := writeTempConfig(t, "types.yaml", `
patient_types:
  - type: A
    diagnosis: A1
    arrival: { dist: exponential }
`)
	_, err := LoadPatientTypes(path)
	assert.Error(t, err)
}

func TestLoadPatientTypes_MissingFile_Errors(t *testing.T) {
	_, err := LoadPatientTypes(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadResources_ValidTable(t *testing.T) {
	// GIVEN a well-formed resource table
	path := writeTempConfig(t, "resources.yaml", `
resources:
  - resource_type: intake
    capacity: 4
    available_at: 0
  - resource_type: surgery
    capacity: 5
    available_at: 0
`)

	// WHEN it is loaded
	cfg, err := LoadResources(path)

	// THEN the capacity table is exposed by resource type
	require.NoError(t, err)
	caps := cfg.Capacities()
	assert.Equal(t, 4, caps[ResourceIntake])
	assert.Equal(t, 5, caps[ResourceSurgery])
}

func TestLoadResources_UnknownType_Errors(t *testing.T) {
	path := writeTempConfig(t, "resources.yaml", `
resources:
  - resource_type: helipad
    capacity: 1
`)
	_, err := LoadResources(path)
	assert.ErrorIs(t, err, ErrUnknownResourceType)
}

func TestLoadResources_NonPositiveCapacity_Errors(t *testing.T) {
	path := writeTempConfig(t, "resources.yaml", `
resources:
  - resource_type: intake
    capacity: 0
`)
	_, err := LoadResources(path)
	assert.Error(t, err)
}
