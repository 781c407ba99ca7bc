// Package planner chooses revised admission times for patients whose
// immediate admission was infeasible. A fixed-generation genetic search
// scores candidate times against live resource contention, collisions with
// already-rescheduled peers, and deadline pressure.
package planner

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Planner-side capacity names for the fixed resource set.
const (
	CapIntake         = "INTAKE"
	CapERPractitioner = "ER_PRACTITIONER"
	CapOR             = "OR"
	CapABed           = "A_BED"
	CapBBed           = "B_BED"
)

// Search parameters. The loop always runs the fixed iteration count; there
// is no convergence check.
const (
	PopulationSize      = 10
	Iterations          = 10
	mutationProbability = 0.01
	mutationSpanHours   = 4

	// worstFitness is the sentinel score of a genome before first evaluation.
	worstFitness = 9999.0

	// averageIntakeHours is the intake-desk contention window: two admissions
	// closer than this compete for the same desk.
	averageIntakeHours = 1.125

	replanWindow   = 7 * 24 * time.Hour
	minReplanDelay = 24*time.Hour + time.Second
)

// PatientInfo is the replanning metadata of one patient.
type PatientInfo struct {
	Diagnosis       string
	SentHomeCounter int
	FirstAdmission  time.Time
	LastReplan      time.Time
	MinReplan       time.Time
	NewAdmission    time.Time
}

// Genome is one candidate admission time for one patient, scored by the
// fitness function (lower is better).
type Genome struct {
	PatientID string
	Fitness   float64
	Info      PatientInfo
}

// Occupation is one row of the system snapshot: a patient currently holding
// or waiting for a resource.
type Occupation struct {
	PatientID string
	Task      string // intake, er_treatment, surgery, nursing_a, nursing_b
	Start     time.Time
	Diagnosis string
	Waiting   bool
}

// Snapshot is the planner's view of ledger occupancy and queue lengths,
// keyed by capacity name.
type Snapshot struct {
	Capacities  map[string]int
	Occupations map[string]int
	Queues      map[string]int
}

var taskToCapacity = map[string]string{
	"intake":       CapIntake,
	"er_treatment": CapERPractitioner,
	"surgery":      CapOR,
	"nursing_a":    CapABed,
	"nursing_b":    CapBBed,
}

// BuildSnapshot folds the occupation rows into per-resource occupation and
// queue counts. Rows with an unknown task are skipped.
func BuildSnapshot(occs []Occupation, capacities map[string]int) Snapshot {
	snap := Snapshot{
		Capacities:  capacities,
		Occupations: make(map[string]int),
		Queues:      make(map[string]int),
	}
	for _, occ := range occs {
		cap, ok := taskToCapacity[occ.Task]
		if !ok {
			logrus.Warnf("snapshot: unknown task %q for patient %s", occ.Task, occ.PatientID)
			continue
		}
		if occ.Waiting {
			snap.Queues[cap]++
		} else {
			snap.Occupations[cap]++
		}
	}
	return snap
}

// Evolution is one search run over the candidates of the patients being
// replanned right now, against the already-replanned peers and the snapshot.
type Evolution struct {
	toReplan   map[string]PatientInfo
	peers      map[string]PatientInfo
	snapshot   Snapshot
	now        time.Time
	population []Genome
	rng        *rand.Rand
}

// NewEvolution builds a search over toReplan. peers are the patients already
// holding a future admission time; their keys are disjoint from toReplan.
func NewEvolution(toReplan, peers map[string]PatientInfo, snapshot Snapshot, now time.Time, rng *rand.Rand) *Evolution {
	return &Evolution{
		toReplan: toReplan,
		peers:    peers,
		snapshot: snapshot,
		now:      now,
		rng:      rng,
	}
}

// InitializePopulation seeds size candidates per patient, drawn from the
// working-hour spans of the feasible window. When less than 24 hours remain
// before the 7-day deadline every candidate collapses to the minimum replan
// time: the patient must be processed, deferring further has no value.
func (e *Evolution) InitializePopulation(size int) {
	for _, cid := range sortedKeys(e.toReplan) {
		info := e.toReplan[cid]
		for _, t := range e.candidateTimes(info, size) {
			candidate := info
			candidate.NewAdmission = t
			e.population = append(e.population, Genome{
				PatientID: cid,
				Fitness:   worstFitness,
				Info:      candidate,
			})
		}
	}
}

// candidateTimes distributes n draws round-robin over the working-hour spans
// between the patient's minimum replan time and its 7-day deadline.
func (e *Evolution) candidateTimes(info PatientInfo, n int) []time.Time {
	lastPossible := info.FirstAdmission.Add(replanWindow)
	spans := WorkingSpans(info.NewAdmission, lastPossible)
	if e.now.Add(24*time.Hour).After(lastPossible) || len(spans) == 0 {
		times := make([]time.Time, n)
		for i := range times {
			times[i] = info.NewAdmission
		}
		return times
	}
	times := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		span := spans[i%len(spans)]
		times = append(times, randomTimeBetween(span.Start, span.End, e.rng))
	}
	return times
}

// severity weight tables for the contention penalty, by base diagnosis.
func erQueueWeight(diagnosis string) float64 {
	switch diagnosis {
	case "A2", "A3", "A4", "B3", "B4":
		return 2
	default:
		return 1
	}
}

func orQueueWeight(diagnosis string) float64 {
	switch diagnosis {
	case "A2", "A3":
		return 1
	case "A4", "B3", "B4":
		return 2
	default:
		return 0
	}
}

func bedQueueWeight(diagnosis string) float64 {
	switch diagnosis {
	case "A1":
		return 1
	case "A2", "B1":
		return 2
	case "A3", "A4", "B2", "B3", "B4":
		return 3
	default:
		return 0
	}
}

func bedCapacity(diagnosis string) string {
	if strings.HasPrefix(diagnosis, "A") {
		return CapABed
	}
	return CapBBed
}

// Fitness scores a genome: the mean of three non-negative penalty terms,
// each scaled by a fixed factor of 10. Lower is better.
func (e *Evolution) Fitness(g Genome) float64 {
	const factor = 10.0
	diagnosis := g.Info.Diagnosis

	// Resource contention, only when the candidate re-enters within 36 hours
	// of the last replan: standing queues then still matter.
	var penContention float64
	if g.Info.NewAdmission.Sub(g.Info.LastReplan) < 36*time.Hour {
		if e.snapshot.Queues[CapERPractitioner] > 0 {
			penContention += erQueueWeight(diagnosis)
		}
		if e.snapshot.Queues[CapOR] > 0 {
			penContention += orQueueWeight(diagnosis)
		}
		if e.snapshot.Queues[bedCapacity(diagnosis)] > 0 {
			penContention += bedQueueWeight(diagnosis)
		}
	}
	penContention *= factor

	// Collisions: peers admitted within one average intake duration contend
	// for the desk; out-of-hours admissions get sent home again.
	var penCollision float64
	for _, peer := range e.peers {
		if within(g.Info.NewAdmission, peer.NewAdmission, time.Duration(averageIntakeHours*float64(time.Hour))) {
			penCollision++
		}
	}
	if !IsWorkingTime(g.Info.NewAdmission) {
		penCollision += 2
	}
	penCollision *= factor

	// Deadline pressure: candidates must stay inside the 7-day window, and
	// the penalty sharpens as the deadline nears. The remaining time is
	// floored at one hour so the term stays finite and positive.
	var penDeadline float64
	if !within(g.Info.NewAdmission, g.Info.FirstAdmission, replanWindow) {
		penDeadline += 4
	}
	daysLeft := g.Info.FirstAdmission.Add(replanWindow).Sub(g.Info.NewAdmission).Hours() / 24
	daysLeft = math.Max(daysLeft, 1.0/24)
	penDeadline += 1 / daysLeft
	penDeadline *= factor

	return (penContention + penCollision + penDeadline) / 3
}

// mutate perturbs the candidate time by a bounded integer-hour offset with a
// small fixed probability, clamped to the minimum replan time.
func (e *Evolution) mutate(g Genome) Genome {
	if e.rng.Float64() >= mutationProbability {
		return g
	}
	offset := time.Duration(e.rng.Intn(2*mutationSpanHours+1)-mutationSpanHours) * time.Hour
	mutated := g.Info.NewAdmission.Add(offset)
	if mutated.Before(g.Info.MinReplan) {
		mutated = g.Info.MinReplan
	}
	g.Info.NewAdmission = mutated
	return g
}

// crossover keeps the elite half unchanged and replaces each unselected
// genome's time with the mean of an adjacent elite pair, clamped to the
// recipient's minimum replan time.
func (e *Evolution) crossover(elite, rest []Genome) []Genome {
	var childTimes []time.Time
	for i := 0; i < len(elite); i += 2 {
		if i+1 < len(elite) {
			t1 := elite[i].Info.NewAdmission
			t2 := elite[i+1].Info.NewAdmission
			childTimes = append(childTimes, t1.Add(t2.Sub(t1)/2))
		} else {
			childTimes = append(childTimes, elite[i].Info.NewAdmission)
		}
	}
	next := make([]Genome, 0, len(elite)+len(rest))
	next = append(next, elite...)
	for _, g := range rest {
		if len(childTimes) > 0 {
			t := childTimes[0]
			childTimes = childTimes[1:]
			if t.Before(g.Info.MinReplan) {
				t = g.Info.MinReplan
			}
			g.Info.NewAdmission = t
		}
		next = append(next, g)
	}
	return next
}

// Cycle runs one generation: evaluate, select the better half as elites,
// breed replacement times for the rest, mutate everyone. Returns the average
// fitness of the evaluated population.
func (e *Evolution) Cycle() float64 {
	var avg float64
	for i := range e.population {
		e.population[i].Fitness = e.Fitness(e.population[i])
		avg += e.population[i].Fitness
	}
	avg /= float64(len(e.population))

	sort.SliceStable(e.population, func(i, j int) bool {
		return e.population[i].Fitness < e.population[j].Fitness
	})
	next := e.population
	if len(e.population) > 1 {
		elite := append([]Genome(nil), e.population[:len(e.population)/2]...)
		rest := e.population[len(e.population)/2:]
		// Deterministic pairing: elites breed in candidate-time order.
		sort.SliceStable(elite, func(i, j int) bool {
			if !elite[i].Info.NewAdmission.Equal(elite[j].Info.NewAdmission) {
				return elite[i].Info.NewAdmission.Before(elite[j].Info.NewAdmission)
			}
			return elite[i].PatientID < elite[j].PatientID
		})
		next = e.crossover(elite, rest)
	}
	for i := range next {
		next[i] = e.mutate(next[i])
	}
	e.population = next
	return avg
}

// Population exposes the current generation, ordered as of the last Cycle.
func (e *Evolution) Population() []Genome {
	return e.population
}

// Results extracts the answer per patient: its first genome in the final
// generation. No best-ever genome is tracked across generations, so a later
// generation can in principle return a worse time than one seen earlier.
func (e *Evolution) Results() map[string]time.Time {
	results := make(map[string]time.Time, len(e.toReplan))
	for cid := range e.toReplan {
		for _, g := range e.population {
			if g.PatientID == cid {
				results[cid] = g.Info.NewAdmission
				break
			}
		}
	}
	return results
}

// Evolve runs the full fixed-generation search and folds the chosen times
// back into the replanned-peers set, which it returns.
func Evolve(toReplan, peers map[string]PatientInfo, occs []Occupation, capacities map[string]int, now time.Time, rng *rand.Rand) map[string]PatientInfo {
	evolution := NewEvolution(toReplan, peers, BuildSnapshot(occs, capacities), now, rng)
	evolution.InitializePopulation(PopulationSize)
	for i := 0; i < Iterations; i++ {
		avg := evolution.Cycle()
		logrus.Debugf("evolution iteration %d/%d: avg fitness %.2f", i+1, Iterations, avg)
	}
	for cid, t := range evolution.Results() {
		info := toReplan[cid]
		info.NewAdmission = t
		info.LastReplan = t
		peers[cid] = info
	}
	return peers
}

func sortedKeys(m map[string]PatientInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
