package usecase

import (
	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/pkg/metrics"
)

// Accumulator collects the novel, complete records of one harvest session.
type Accumulator struct {
	dedup   *DedupStore
	target  int
	order   []string
	records map[string]*entity.Record
}

func NewAccumulator(dedup *DedupStore, target int) *Accumulator {
	return &Accumulator{
		dedup:   dedup,
		target:  target,
		records: make(map[string]*entity.Record),
	}
}

// Admits reports why a record with this id would be rejected, before any of
// its fields are extracted. A nil return means the id is worth extracting.
func (a *Accumulator) Admits(id string) error {
	if id == "" || id == entity.UnresolvedID {
		return ErrUnresolvedID
	}
	if a.dedup.Contains(id) {
		return ErrDuplicate
	}
	if a.Full() {
		return ErrTargetReached
	}
	return nil
}

// Check applies every acceptance rule to a fully extracted candidate.
func (a *Accumulator) Check(rec *entity.Record) error {
	if err := a.Admits(rec.ID); err != nil {
		return err
	}
	if !rec.Complete() {
		return ErrIncomplete
	}
	return nil
}

// Offer stores rec and marks its id seen when it passes Check.
func (a *Accumulator) Offer(rec entity.Record) bool {
	if err := a.Check(&rec); err != nil {
		metrics.FragmentsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return false
	}
	a.records[rec.ID] = &rec
	a.order = append(a.order, rec.ID)
	a.dedup.MarkSeen(rec.ID)
	metrics.FragmentsTotal.WithLabelValues("accepted").Inc()
	return true
}

func (a *Accumulator) Size() int {
	return len(a.order)
}

// Full reports whether the target count has been reached.
func (a *Accumulator) Full() bool {
	return a.target > 0 && len(a.order) >= a.target
}

// Records returns the accepted records in acceptance order. The pointers
// alias the accumulator's storage so the enrichment pass can attach images.
func (a *Accumulator) Records() []*entity.Record {
	out := make([]*entity.Record, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.records[id])
	}
	return out
}

// Values returns a copy of the accepted records in acceptance order.
func (a *Accumulator) Values() []entity.Record {
	out := make([]entity.Record, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.records[id])
	}
	return out
}

func outcomeLabel(err error) string {
	switch err {
	case ErrUnresolvedID:
		return "unresolved_id"
	case ErrDuplicate:
		return "duplicate"
	case ErrIncomplete:
		return "incomplete"
	case ErrTargetReached:
		return "target_reached"
	default:
		return "error"
	}
}
