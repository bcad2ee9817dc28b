/*
Package allocation distributes a monthly utility bill across active tenants.

PURPOSE:
  Takes one property-month of inputs - the aggregate expense record, the
  itemized TNB bill, and the tenants' individual sub-meter readings - and
  produces a complete per-tenant cost breakdown under one of two allocation
  strategies. The computation is pure and synchronous: all data in as
  arguments, a fresh result out, nothing shared between runs.

KEY CONCEPTS IN THIS FILE (types.go):
  - UsageReading: previous/current sub-meter pair, usage is the difference
  - MonthlyExpense: aggregate record for one property-month (immutable per run)
  - Tenant: the calculation-relevant subset of a tenant record
  - TenantBreakdown: one tenant's shares, never mutated after creation
  - Result: the aggregate wrapper callers persist and render

STRATEGIES:
  MethodSimpleAverage: one blended rate for everything. Best when individual
  usage barely varies across tenants.

  MethodLayeredPrecise: common-area usage priced through its own tariff
  bracket, individual usage priced from the remainder. Best when usage varies
  a lot, since it stops low-usage tenants cross-subsidizing high-usage ones.

SEE ALSO:
  - engine.go: the Allocate entry point and fixed-charge splits
  - validate.go: pre-flight input checks
*/
package allocation

import (
	"time"

	"github.com/warp/tenancy-billing/currency"
)

// =============================================================================
// INPUT TYPES
// =============================================================================

// UsageReading is one tenant's sub-meter pair for a period, in kWh.
// Invariant: Current >= Previous (checked by Validate, not enforced here).
type UsageReading struct {
	Previous float64
	Current  float64
}

// Usage returns the derived consumption for the period.
func (r UsageReading) Usage() float64 { return r.Current - r.Previous }

// MonthlyExpense is the aggregate expense record for one property-month.
// Created once per calendar month and treated as immutable for a run.
type MonthlyExpense struct {
	Month int
	Year  int

	TotalKWh float64 // whole-property usage from the TNB bill
	ACKWh    float64 // sum of individually sub-metered (AC) usage

	BaseRent      float64
	InternetFee   float64
	WaterBill     float64
	Miscellaneous float64

	// SplitMiscellaneous controls whether Miscellaneous is divided among
	// tenants or excluded from the allocation entirely.
	SplitMiscellaneous bool

	// InvoicedTotal, when set, is the transcribed total from the physical
	// TNB invoice. It anchors allocation to ground truth instead of the
	// theoretical formula result.
	InvoicedTotal *float64
}

// CommonKWh returns the common-area usage (total minus sub-metered).
// Never negative: an AC total exceeding the bill total is a data-entry
// error surfaced by Validate, not something to propagate as negative usage.
func (e MonthlyExpense) CommonKWh() float64 {
	common := e.TotalKWh - e.ACKWh
	if common < 0 {
		return 0
	}
	return common
}

// FixedCharges returns the non-electricity charges for the month:
// rent + internet + water, plus miscellaneous when it is being split.
func (e MonthlyExpense) FixedCharges() currency.Amount {
	total := currency.Sum(
		currency.FromFloat(e.BaseRent),
		currency.FromFloat(e.InternetFee),
		currency.FromFloat(e.WaterBill),
	)
	if e.SplitMiscellaneous {
		total = total.Add(currency.FromFloat(e.Miscellaneous))
	}
	return total
}

// Tenant is the calculation-relevant subset of a tenant record.
type Tenant struct {
	ID      string
	Name    string
	Active  bool
	Reading UsageReading
}

// Usage returns the tenant's derived sub-meter consumption.
func (t Tenant) Usage() float64 { return t.Reading.Usage() }

// =============================================================================
// METHOD AND OPTIONS
// =============================================================================

// Method selects the allocation strategy.
type Method string

const (
	MethodSimpleAverage  Method = "simple_average"
	MethodLayeredPrecise Method = "layered_precise"
)

// Valid reports whether the method names a known strategy.
func (m Method) Valid() bool {
	return m == MethodSimpleAverage || m == MethodLayeredPrecise
}

// Options carries property configuration that shapes the allocation.
type Options struct {
	// HasIndividualMeters indicates per-unit meters rather than one shared
	// meter. The layered strategy inverts its derivation order in that case:
	// individually metered usage is ground truth, common area is the remainder.
	HasIndividualMeters bool

	// AssignedRents maps tenant ID to a unit's full monthly rent. A tenant
	// with an assigned rent pays that figure as-is instead of an equal share
	// of the base rent.
	AssignedRents map[string]float64
}

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// TenantBreakdown is one tenant's complete share of the month's costs.
// Breakdowns are created fresh per run and never mutated; recalculation
// produces a new set that supersedes the old one in the caller's store.
type TenantBreakdown struct {
	TenantID   string
	TenantName string
	UsageKWh   float64

	RentShare              currency.Amount
	InternetShare          currency.Amount
	WaterShare             currency.Amount
	CommonElectricityShare currency.Amount
	IndividualUsageCost    currency.Amount
	MiscellaneousShare     currency.Amount

	// TotalAmount is the sum of all six shares.
	TotalAmount currency.Amount
}

// Result is the aggregate outcome of one allocation run.
//
// TotalAmount is the authoritative figure (fixed charges + bill total),
// computed independently of per-tenant rounding. The sum of breakdown
// totals may drift from it by a few sen across N tenants; callers should
// tolerate that rather than treat it as an error.
type Result struct {
	Method            Method
	TotalAmount       currency.Amount
	ActiveTenantCount int
	Breakdowns        []TenantBreakdown
	CalculatedAt      time.Time
}

// BreakdownSum returns the sum of per-tenant totals, for drift reporting.
func (r Result) BreakdownSum() currency.Amount {
	sum := currency.Zero()
	for _, b := range r.Breakdowns {
		sum = sum.Add(b.TotalAmount)
	}
	return sum
}
