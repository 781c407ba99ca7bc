package planner

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Planner owns the set of already-replanned patients and runs the
// evolutionary search for each new replanning decision. The engine calls it
// under its own serialization discipline; Planner has no locking of its own.
type Planner struct {
	replanned  map[string]PatientInfo
	capacities map[string]int
	rng        *rand.Rand
}

// New builds a Planner. capacities is keyed by planner capacity name
// (INTAKE, ER_PRACTITIONER, OR, A_BED, B_BED).
func New(capacities map[string]int, rng *rand.Rand) *Planner {
	return &Planner{
		replanned:  make(map[string]PatientInfo),
		capacities: capacities,
		rng:        rng,
	}
}

// Replanned returns the live replanned-patients set.
func (p *Planner) Replanned() map[string]PatientInfo {
	return p.replanned
}

// PlanPatient computes a new admission time for one patient. decision is the
// instant the infeasible admission was detected; occs is the system snapshot
// at that instant. The returned time is always >= decision + 24h + 1s.
func (p *Planner) PlanPatient(patientID, diagnosis string, decision time.Time, occs []Occupation) time.Time {
	// Entries whose admission time has passed are no longer collision
	// candidates; drop them before seeding the search.
	for cid, info := range p.replanned {
		if cid != patientID && !info.NewAdmission.After(decision) {
			delete(p.replanned, cid)
		}
	}

	minReplan := decision.Add(minReplanDelay)
	info, seen := p.replanned[patientID]
	if seen {
		info.SentHomeCounter++
		info.LastReplan = info.NewAdmission
		// While being replanned the patient is not its own collision peer.
		delete(p.replanned, patientID)
	} else {
		info = PatientInfo{
			Diagnosis:       diagnosis,
			SentHomeCounter: 1,
			FirstAdmission:  decision,
			LastReplan:      decision,
		}
	}
	info.MinReplan = minReplan
	info.NewAdmission = minReplan

	toReplan := map[string]PatientInfo{patientID: info}
	p.replanned = Evolve(toReplan, p.replanned, occs, p.capacities, decision, p.rng)

	result := p.replanned[patientID]
	logrus.Infof("replanned patient %s (%s): sent home %d time(s), new admission %s",
		patientID, result.Diagnosis, result.SentHomeCounter, result.NewAdmission.Format(time.RFC3339))
	return result.NewAdmission
}
