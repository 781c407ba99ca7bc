package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospital-sim/hospital-sim/sim"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &sim.ResourceConfig{Resources: []sim.ResourceSpec{
		{ResourceType: sim.ResourceIntake, Capacity: 4},
		{ResourceType: sim.ResourceERTreatment, Capacity: 9},
		{ResourceType: sim.ResourceSurgery, Capacity: 5},
		{ResourceType: sim.ResourceNursingA, Capacity: 30},
		{ResourceType: sim.ResourceNursingB, Capacity: 40},
	}}
	types := []sim.PatientTypeConfig{
		{Type: "A", Diagnosis: "A1", NursingTimeMean: 4, NursingTimeStd: 0.5},
		{Type: "EM", Diagnosis: "ER"},
	}
	s := sim.New(sim.Options{
		Ledger:       sim.NewMemoryLedger(cfg),
		Resources:    cfg,
		PatientTypes: types,
		Seed:         1,
	})
	srv := httptest.NewServer(NewServer(s).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAdmitPatient_Valid_ReturnsVerdict(t *testing.T) {
	// GIVEN a running server over an empty hospital
	srv := newTestServer(t)

	// WHEN an elective admission is posted
	resp := postJSON(t, srv.URL+"/admit-patient", map[string]string{
		"diagnosis": "A1",
		"time":      "2018-01-01T10:00:00",
	})

	// THEN the verdict is feasible and an id was assigned
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		PatientID string `json:"cid"`
		Feasible  bool   `json:"feasible"`
		Time      string `json:"time"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.PatientID)
	assert.True(t, body.Feasible)
	assert.Equal(t, "2018-01-01T10:00:00", body.Time)
}

func TestAdmitPatient_InvalidDiagnosis_422(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/admit-patient", map[string]string{
		"diagnosis": "Z9",
		"time":      "2018-01-01T10:00:00",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAdmitPatient_MalformedTimestamp_400(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/admit-patient", map[string]string{
		"diagnosis": "A1",
		"time":      "next tuesday",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdmitPatient_MalformedBody_400(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/admit-patient", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequestResource_Accepted(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/request-resource", map[string]string{
		"cid":           "p1",
		"diagnosis":     "A1",
		"resource_type": "intake",
		"time":          "2018-01-01T10:00:00",
	})

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestRequestResource_UnknownResource_422(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/request-resource", map[string]string{
		"cid":           "p1",
		"diagnosis":     "A1",
		"resource_type": "x_ray",
		"time":          "2018-01-01T10:00:00",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestReplanPatient_ReturnsFutureTime(t *testing.T) {
	// GIVEN a running server
	srv := newTestServer(t)

	// WHEN a replan is posted with an empty snapshot
	resp := postJSON(t, srv.URL+"/replan-patient", map[string]any{
		"cid":       "p1",
		"diagnosis": "A1",
		"time":      "2018-01-01T10:00:00",
		"state":     []sim.StateItem{},
	})

	// THEN the new admission time honors the minimum notice
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Time string `json:"time"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	got, err := sim.FromISO(body.Time)
	require.NoError(t, err)
	decision, err := sim.FromISO("2018-01-01T10:00:00")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, decision+24)
}

func TestSystemState_EmptyHospital(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/system-state")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []sim.StateItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	assert.Empty(t, items)
}

func TestMetricsEndpoint_Serves(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
