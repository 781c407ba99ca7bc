// Package metrics provides Prometheus observability for the hospital
// simulator: patient flow counters and live occupancy gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for the simulator.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// PatientsInSystem tracks the current number of admitted patients.
var PatientsInSystem = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "hospital",
	Name:      "patients_in_system",
	Help:      "Current number of patients inside the hospital",
})

// AdmissionsTotal counts processed admission events by feasibility outcome.
var AdmissionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hospital",
	Name:      "admissions_total",
	Help:      "Admission decisions processed, labelled by outcome",
}, []string{"outcome"}) // "admitted" or "sent_home"

// ReplansTotal counts patients deferred to a new admission time.
var ReplansTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "hospital",
	Name:      "replans_total",
	Help:      "Patients deferred to an evolutionary-search-selected time",
})

// ReleasesTotal counts patients released from the hospital.
var ReleasesTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "hospital",
	Name:      "releases_total",
	Help:      "Patients released from the hospital",
})

// QueueLength tracks the waiting-queue depth per resource type.
var QueueLength = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "hospital",
	Name:      "queue_length",
	Help:      "Number of waiting requests per resource type",
}, []string{"resource"})

// TasksGrantedTotal counts resource grants per resource type.
var TasksGrantedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hospital",
	Name:      "tasks_granted_total",
	Help:      "Resource grants per resource type",
}, []string{"resource"})
