package engine

import (
	"time"

	"github.com/BarkinBalci/registration-analytics-service/internal/aggregate"
	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
	"github.com/BarkinBalci/registration-analytics-service/internal/normalize"
)

// Snapshot is the immutable outcome of one ingestion run. A newer run supersedes it, it is never edited.
type Snapshot struct {
	Version int64
	RunID   string
	Records []domain.CanonicalRecord
	Table   *aggregate.Table
	// Participants indexes Records by registrant
	Participants *aggregate.Participants
	Report       Report
}

// ParticipantQuery selects inactive and least active registrants of the active snapshot
type ParticipantQuery struct {
	// AsOf is the reference time for inactivity; zero means now
	AsOf time.Time
	// InactiveDays is the number of whole days without a registration a participant must exceed
	InactiveDays int
	// Limit caps both lists; zero means no cap
	Limit int
}

// ParticipantReport answers a ParticipantQuery
type ParticipantReport struct {
	SnapshotVersion int64
	AsOf            time.Time
	InactiveDays    int
	Participants    int
	// InactiveTotal counts every inactive participant, including those beyond Limit
	InactiveTotal int
	Inactive      []aggregate.Participant
	LeastActive   []aggregate.Participant
}

// Report holds the data-quality counters of one ingestion run
type Report struct {
	SnapshotVersion int64
	RunID           string
	Received        int
	Accepted        int
	Duplicates      int
	Rejected        map[normalize.Reason]int
	FirstDay        time.Time
	LastDay         time.Time
	BuiltAt         time.Time
	Duration        time.Duration
}

// RejectedTotal returns the number of rejected rows over every reason
func (r Report) RejectedTotal() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}

func (r Report) rejectedByName() map[string]int {
	out := make(map[string]int, len(r.Rejected))
	for reason, n := range r.Rejected {
		out[string(reason)] = n
	}
	return out
}

func (r Report) clone() Report {
	out := r
	out.Rejected = make(map[normalize.Reason]int, len(r.Rejected))
	for reason, n := range r.Rejected {
		out.Rejected[reason] = n
	}
	return out
}
