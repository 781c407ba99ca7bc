package sim

import (
	"fmt"
	"sort"
)

// QueueEntry is one waiting resource request. Priority 0 is emergency,
// 1 is scheduled; within a priority class entries are strict FIFO by
// request time.
type QueueEntry struct {
	Priority    int
	RequestTime float64
	PatientID   string
	Diagnosis   string
	Resource    string
	CallbackRef string
}

// Ledger is the persisted resource-state contract: per-unit availability
// plus the waiting queues. The engine is the only writer; implementations
// need no internal locking beyond their own storage's requirements.
//
// A unit is a logical slot with an available-at timestamp, not an
// occupied/free flag: a unit whose timestamp is <= now is free. TryAcquire
// never mutates; callers that take the unit must Reserve it immediately
// within the same event to avoid double-assignment.
type Ledger interface {
	// TryAcquire returns the unit of the given type with the earliest
	// availability <= at, or ok=false when every unit is busy.
	TryAcquire(resource string, at float64) (unit string, ok bool, err error)

	// Reserve sets the unit's availability to until.
	Reserve(unit string, until float64) error

	// Enqueue inserts preserving priority/FIFO order.
	Enqueue(e QueueEntry) error

	// DequeueHead removes and returns the highest-priority oldest entry for
	// the resource type, or ok=false when the queue is empty.
	DequeueHead(resource string) (e QueueEntry, ok bool, err error)

	// QueueLength reports the number of waiting entries for the type.
	QueueLength(resource string) (int, error)

	// DropPatient removes every queued entry for the patient. Called when a
	// patient leaves the hospital.
	DropPatient(patientID string) error
}

type resourceUnit struct {
	name        string
	resource    string
	availableAt float64
}

// MemoryLedger is the in-process Ledger. Units live in a flat arena and are
// referenced by name; queue entries hold patient ids only.
type MemoryLedger struct {
	units  []resourceUnit
	byName map[string]int              // unit name -> arena index
	queues map[string][]QueueEntry     // resource type -> ordered entries
}

// NewMemoryLedger builds a ledger with capacity units per resource spec,
// named "<type>_<index>", each initially available at the spec's timestamp.
func NewMemoryLedger(cfg *ResourceConfig) *MemoryLedger {
	l := &MemoryLedger{
		byName: make(map[string]int),
		queues: make(map[string][]QueueEntry),
	}
	for _, spec := range cfg.Resources {
		for i := 0; i < spec.Capacity; i++ {
			name := fmt.Sprintf("%s_%d", spec.ResourceType, i)
			l.byName[name] = len(l.units)
			l.units = append(l.units, resourceUnit{
				name:        name,
				resource:    spec.ResourceType,
				availableAt: spec.AvailableAt,
			})
		}
	}
	return l
}

// TryAcquire scans for the free unit with the earliest availability,
// breaking ties by unit name for determinism.
func (l *MemoryLedger) TryAcquire(resource string, at float64) (string, bool, error) {
	best := -1
	for i, u := range l.units {
		if u.resource != resource || u.availableAt > at {
			continue
		}
		if best == -1 || u.availableAt < l.units[best].availableAt {
			best = i
		}
	}
	if best == -1 {
		return "", false, nil
	}
	return l.units[best].name, true, nil
}

func (l *MemoryLedger) Reserve(unit string, until float64) error {
	idx, ok := l.byName[unit]
	if !ok {
		return fmt.Errorf("reserve: unknown unit %q", unit)
	}
	l.units[idx].availableAt = until
	return nil
}

// Enqueue inserts at the position preserving (priority asc, requestTime asc)
// order, so DequeueHead is a pop of the head.
func (l *MemoryLedger) Enqueue(e QueueEntry) error {
	q := l.queues[e.Resource]
	pos := sort.Search(len(q), func(i int) bool {
		if q[i].Priority != e.Priority {
			return q[i].Priority > e.Priority
		}
		return q[i].RequestTime > e.RequestTime
	})
	q = append(q, QueueEntry{})
	copy(q[pos+1:], q[pos:])
	q[pos] = e
	l.queues[e.Resource] = q
	return nil
}

func (l *MemoryLedger) DequeueHead(resource string) (QueueEntry, bool, error) {
	q := l.queues[resource]
	if len(q) == 0 {
		return QueueEntry{}, false, nil
	}
	head := q[0]
	l.queues[resource] = q[1:]
	return head, true, nil
}

func (l *MemoryLedger) QueueLength(resource string) (int, error) {
	return len(l.queues[resource]), nil
}

func (l *MemoryLedger) DropPatient(patientID string) error {
	for resource, q := range l.queues {
		kept := q[:0]
		for _, e := range q {
			if e.PatientID != patientID {
				kept = append(kept, e)
			}
		}
		l.queues[resource] = kept
	}
	return nil
}
