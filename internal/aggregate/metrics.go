package aggregate

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/cockroachdb/apd/v3"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// rateExponent fixes derived rates at six decimal places
const rateExponent = -6

var decimalContext = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfEven
	return ctx
}()

// Metrics is the summary of a group of registrations.
// Cancelled registrations do not contribute to revenue.
type Metrics struct {
	Count        int64
	Confirmed    int64
	Cancelled    int64
	Waitlisted   int64
	Unknown      int64
	Virtual      int64
	RevenueMinor int64

	registrants *roaring.Bitmap
}

func (m *Metrics) addRecord(r domain.CanonicalRecord, registrant uint32) {
	m.Count++
	switch r.Status {
	case domain.StatusConfirmed:
		m.Confirmed++
	case domain.StatusCancelled:
		m.Cancelled++
	case domain.StatusWaitlisted:
		m.Waitlisted++
	default:
		m.Unknown++
	}
	if r.Virtual {
		m.Virtual++
	}
	if r.Status != domain.StatusCancelled {
		m.RevenueMinor += r.PriceMinor
	}

	if m.registrants == nil {
		m.registrants = roaring.New()
	}
	m.registrants.Add(registrant)
}

// Merge adds o into m. The registrant sets are unioned, so distinct counts stay exact.
// o is never modified.
func (m *Metrics) Merge(o Metrics) {
	m.Count += o.Count
	m.Confirmed += o.Confirmed
	m.Cancelled += o.Cancelled
	m.Waitlisted += o.Waitlisted
	m.Unknown += o.Unknown
	m.Virtual += o.Virtual
	m.RevenueMinor += o.RevenueMinor

	if o.registrants == nil {
		return
	}
	if m.registrants == nil {
		m.registrants = o.registrants.Clone()
		return
	}
	m.registrants.Or(o.registrants)
}

// DistinctRegistrants returns the number of distinct registrants in the group
func (m Metrics) DistinctRegistrants() uint64 {
	if m.registrants == nil {
		return 0
	}
	return m.registrants.GetCardinality()
}

// Equal reports whether m and o hold identical counters and registrant sets
func (m Metrics) Equal(o Metrics) bool {
	if m.Count != o.Count || m.Confirmed != o.Confirmed || m.Cancelled != o.Cancelled ||
		m.Waitlisted != o.Waitlisted || m.Unknown != o.Unknown || m.Virtual != o.Virtual ||
		m.RevenueMinor != o.RevenueMinor {
		return false
	}
	if m.DistinctRegistrants() != o.DistinctRegistrants() {
		return false
	}
	if m.registrants == nil || o.registrants == nil {
		return true
	}
	return m.registrants.Equals(o.registrants)
}

// Rates are the derived ratios of a group, fixed at six decimal places.
// AveragePrice is in major currency units with two decimal places.
type Rates struct {
	Conversion   *apd.Decimal
	Cancellation *apd.Decimal
	Waitlist     *apd.Decimal
	AveragePrice *apd.Decimal
}

// Rates computes the derived ratios. Every rate is 0 when its denominator is 0.
func (m Metrics) Rates() Rates {
	decided := m.Confirmed + m.Cancelled + m.Waitlisted

	return Rates{
		Conversion:   ratio(m.Confirmed, decided, rateExponent),
		Cancellation: ratio(m.Cancelled, decided, rateExponent),
		Waitlist:     ratio(m.Waitlisted, decided, rateExponent),
		AveragePrice: ratio(m.RevenueMinor, (m.Count-m.Cancelled)*100, -2),
	}
}

func ratio(num, den int64, exponent int32) *apd.Decimal {
	result := apd.New(0, exponent)
	if den == 0 {
		return result
	}

	var quo apd.Decimal
	if _, err := decimalContext.Quo(&quo, apd.New(num, 0), apd.New(den, 0)); err != nil {
		return result
	}
	if _, err := decimalContext.Quantize(result, &quo, exponent); err != nil {
		return apd.New(0, exponent)
	}
	return result
}
