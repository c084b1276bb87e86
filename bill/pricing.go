package bill

import (
	"math"
	"time"

	"github.com/velocitymobility/fleetops-backend/bike"
)

// Pricing holds the configured rates, in integer cents. Tax is applied
// to the ride cost and rounded half away from zero to whole cents.
type Pricing struct {
	StandardBaseCents      int64
	StandardPerMinuteCents int64
	ElectricBaseCents      int64
	ElectricPerMinuteCents int64
	TaxRate                float64
	AbandonmentFeeCents    int64
	Currency               string
}

// DefaultPricing mirrors the launch rate card: $1.11 unlock, $0.22/min
// standard, $0.33/min electric, 14.975% tax, $333.00 abandonment fee.
func DefaultPricing() Pricing {
	return Pricing{
		StandardBaseCents:      111,
		StandardPerMinuteCents: 22,
		ElectricBaseCents:      111,
		ElectricPerMinuteCents: 33,
		TaxRate:                0.14975,
		AbandonmentFeeCents:    33300,
		Currency:               "CAD",
	}
}

// Breakdown is the deterministic cost decomposition of one trip.
type Breakdown struct {
	DurationMinutes int64
	BaseCents       int64
	RideCents       int64
	TaxCents        int64
	TotalCents      int64
}

// Quote prices a trip of the given duration. Partial minutes are
// charged as whole minutes.
func (p Pricing) Quote(t bike.Type, duration time.Duration) Breakdown {
	minutes := int64(math.Ceil(duration.Minutes()))
	if minutes < 0 {
		minutes = 0
	}

	base := p.StandardBaseCents
	perMinute := p.StandardPerMinuteCents
	if t == bike.Electric {
		base = p.ElectricBaseCents
		perMinute = p.ElectricPerMinuteCents
	}

	ride := minutes * perMinute
	tax := roundCents(float64(base+ride) * p.TaxRate)

	return Breakdown{
		DurationMinutes: minutes,
		BaseCents:       base,
		RideCents:       ride,
		TaxCents:        tax,
		TotalCents:      base + ride + tax,
	}
}

// AbandonmentQuote prices an abandoned trip: flat fee plus tax, no
// per-minute component.
func (p Pricing) AbandonmentQuote(duration time.Duration) Breakdown {
	minutes := int64(math.Ceil(duration.Minutes()))
	tax := roundCents(float64(p.AbandonmentFeeCents) * p.TaxRate)
	return Breakdown{
		DurationMinutes: minutes,
		BaseCents:       p.AbandonmentFeeCents,
		RideCents:       0,
		TaxCents:        tax,
		TotalCents:      p.AbandonmentFeeCents + tax,
	}
}

func roundCents(f float64) int64 {
	return int64(math.Round(f))
}
