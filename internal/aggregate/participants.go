package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// Participant summarizes the registrations of one registrant
type Participant struct {
	RegistrantID     string
	LastRegisteredAt time.Time
	Registrations    int64
}

// DaysSince returns the whole days elapsed from the participant's last registration to asOf, rounded down
func (p Participant) DaysSince(asOf time.Time) int {
	return int(math.Floor(asOf.Sub(p.LastRegisteredAt).Hours() / 24))
}

// Participants is an immutable per-registrant index built once per snapshot
type Participants struct {
	// byLast orders participants by last registration ascending, then registrant id
	byLast []Participant
	// byCount orders participants by registration count ascending, then last registration ascending
	byCount []Participant
}

// BuildParticipants groups records by registrant
func BuildParticipants(records []domain.CanonicalRecord) *Participants {
	index := make(map[string]int)
	var all []Participant

	for _, r := range records {
		i, ok := index[r.RegistrantID]
		if !ok {
			i = len(all)
			index[r.RegistrantID] = i
			all = append(all, Participant{RegistrantID: r.RegistrantID})
		}

		p := &all[i]
		p.Registrations++
		if r.RegisteredAt.After(p.LastRegisteredAt) {
			p.LastRegisteredAt = r.RegisteredAt.UTC()
		}
	}

	byLast := append([]Participant(nil), all...)
	sort.Slice(byLast, func(i, j int) bool {
		return lessParticipantByLast(byLast[i], byLast[j])
	})

	byCount := append([]Participant(nil), all...)
	sort.Slice(byCount, func(i, j int) bool {
		if byCount[i].Registrations != byCount[j].Registrations {
			return byCount[i].Registrations < byCount[j].Registrations
		}
		return lessParticipantByLast(byCount[i], byCount[j])
	})

	return &Participants{byLast: byLast, byCount: byCount}
}

func lessParticipantByLast(a, b Participant) bool {
	if !a.LastRegisteredAt.Equal(b.LastRegisteredAt) {
		return a.LastRegisteredAt.Before(b.LastRegisteredAt)
	}
	return a.RegistrantID < b.RegistrantID
}

// Len returns the number of distinct registrants
func (p *Participants) Len() int {
	return len(p.byLast)
}

// Inactive returns participants whose last registration is more than days whole days before asOf,
// longest inactive first, capped at limit (zero means no cap). total counts every match.
func (p *Participants) Inactive(asOf time.Time, days, limit int) (matched []Participant, total int) {
	// DaysSince > days holds exactly when the last registration is at or before the cutoff
	cutoff := asOf.AddDate(0, 0, -(days + 1))
	total = sort.Search(len(p.byLast), func(i int) bool {
		return p.byLast[i].LastRegisteredAt.After(cutoff)
	})

	return capped(p.byLast[:total], limit), total
}

// LeastActive returns the participants with the fewest registrations, longest inactive first among equals,
// capped at limit (zero means no cap)
func (p *Participants) LeastActive(limit int) []Participant {
	return capped(p.byCount, limit)
}

func capped(ps []Participant, limit int) []Participant {
	if limit > 0 && len(ps) > limit {
		ps = ps[:limit]
	}
	return append([]Participant(nil), ps...)
}
