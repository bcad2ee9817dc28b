/*
validate.go - Pre-flight input checks for an allocation run

PURPOSE:
  Surfaces data-entry inconsistencies BEFORE allocation runs. Each failure
  is a distinct, named condition with a human-readable message - not a
  generic error. Validation never aborts anything itself: the caller
  decides whether to block on the issues or proceed with a warning (the
  calculation screens surface them but still allow the run).

CHECKS:
  NoActiveTenants      no one to bill (the engine's empty short-circuit
                       handles this gracefully, but the UI wants to know)
  InvalidMeterReading  a sub-meter reading went backwards
  UsageMismatch        sub-meter sum disagrees with the bill's declared AC
                       total by more than 1 kWh
  NegativeUsage        negative aggregate usage figures
  ACExceedsTotal       sub-metered usage exceeds the whole-property total
  InvalidPeriod        month outside 1-12 or year outside a sane bound
*/
package allocation

import (
	"fmt"
	"math"
)

// IssueCode names a validation condition.
type IssueCode string

const (
	NoActiveTenants     IssueCode = "no_active_tenants"
	InvalidMeterReading IssueCode = "invalid_meter_reading"
	UsageMismatch       IssueCode = "usage_mismatch"
	NegativeUsage       IssueCode = "negative_usage"
	ACExceedsTotal      IssueCode = "ac_exceeds_total"
	InvalidPeriod       IssueCode = "invalid_period"
)

// usageMismatchToleranceKWh allows for sub-meter read timing skew between
// the aggregate bill and the individual readings.
const usageMismatchToleranceKWh = 1.0

// Year bounds for InvalidPeriod. Anything outside is a typo, not a bill.
const (
	minYear = 2000
	maxYear = 2100
)

// Issue is one named validation failure with a display message.
type Issue struct {
	Code    IssueCode
	Message string
}

func (i Issue) String() string { return i.Message }

// Validate runs all pre-flight checks and returns every issue found.
// An empty slice means the inputs are consistent.
func Validate(expense MonthlyExpense, tenants []Tenant) []Issue {
	var issues []Issue

	if expense.Month < 1 || expense.Month > 12 || expense.Year < minYear || expense.Year > maxYear {
		issues = append(issues, Issue{
			Code:    InvalidPeriod,
			Message: fmt.Sprintf("period %d-%02d is not a valid billing month", expense.Year, expense.Month),
		})
	}

	if expense.TotalKWh < 0 || expense.ACKWh < 0 {
		issues = append(issues, Issue{
			Code:    NegativeUsage,
			Message: fmt.Sprintf("usage cannot be negative (total %.2f kWh, AC %.2f kWh)", expense.TotalKWh, expense.ACKWh),
		})
	}

	if expense.ACKWh > expense.TotalKWh {
		issues = append(issues, Issue{
			Code:    ACExceedsTotal,
			Message: fmt.Sprintf("AC usage %.2f kWh exceeds total usage %.2f kWh", expense.ACKWh, expense.TotalKWh),
		})
	}

	active := ActiveTenants(tenants)
	if len(active) == 0 {
		issues = append(issues, Issue{
			Code:    NoActiveTenants,
			Message: "no active tenants to allocate costs to",
		})
	}

	var usageSum float64
	for _, t := range active {
		if t.Reading.Current < t.Reading.Previous {
			issues = append(issues, Issue{
				Code: InvalidMeterReading,
				Message: fmt.Sprintf("%s: current reading %.2f is below previous reading %.2f",
					t.Name, t.Reading.Current, t.Reading.Previous),
			})
			continue
		}
		usageSum += t.Usage()
	}

	if len(active) > 0 && math.Abs(usageSum-expense.ACKWh) > usageMismatchToleranceKWh {
		issues = append(issues, Issue{
			Code: UsageMismatch,
			Message: fmt.Sprintf("sum of tenant readings %.2f kWh differs from declared AC total %.2f kWh",
				usageSum, expense.ACKWh),
		})
	}

	return issues
}

// Messages flattens issues to display strings.
func Messages(issues []Issue) []string {
	msgs := make([]string, len(issues))
	for i, issue := range issues {
		msgs[i] = issue.Message
	}
	return msgs
}
