package allocation_test

import (
	"testing"

	"github.com/warp/tenancy-billing/allocation"
)

func hasIssue(issues []allocation.Issue, code allocation.IssueCode) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

func TestValidate_CleanInputs(t *testing.T) {
	issues := allocation.Validate(threeTenantExpense(), threeTenants())
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", allocation.Messages(issues))
	}
}

func TestValidate_InvalidMeterReading(t *testing.T) {
	// GIVEN: A tenant whose current reading is below the previous one
	// WHEN: Validating
	// THEN: InvalidMeterReading is reported for that tenant

	tenants := threeTenants()
	tenants[1].Reading = allocation.UsageReading{Previous: 150, Current: 100}

	issues := allocation.Validate(threeTenantExpense(), tenants)
	if !hasIssue(issues, allocation.InvalidMeterReading) {
		t.Fatalf("expected InvalidMeterReading, got %v", allocation.Messages(issues))
	}
}

func TestValidate_UsageMismatch(t *testing.T) {
	// Declared AC total disagrees with the sub-meter sum by more than 1 kWh.
	expense := threeTenantExpense()
	expense.ACKWh = 310

	issues := allocation.Validate(expense, threeTenants())
	if !hasIssue(issues, allocation.UsageMismatch) {
		t.Fatalf("expected UsageMismatch, got %v", allocation.Messages(issues))
	}
}

func TestValidate_UsageMismatchTolerance(t *testing.T) {
	// A sub-kWh discrepancy is read-timing skew, not a data-entry error.
	expense := threeTenantExpense()
	expense.ACKWh = 300.8

	issues := allocation.Validate(expense, threeTenants())
	if hasIssue(issues, allocation.UsageMismatch) {
		t.Error("discrepancy within 1 kWh should not be reported")
	}
}

func TestValidate_NegativeUsage(t *testing.T) {
	expense := threeTenantExpense()
	expense.TotalKWh = -10

	if !hasIssue(allocation.Validate(expense, threeTenants()), allocation.NegativeUsage) {
		t.Error("expected NegativeUsage")
	}
}

func TestValidate_ACExceedsTotal(t *testing.T) {
	expense := threeTenantExpense()
	expense.ACKWh = expense.TotalKWh + 50

	if !hasIssue(allocation.Validate(expense, threeTenants()), allocation.ACExceedsTotal) {
		t.Error("expected ACExceedsTotal")
	}
}

func TestValidate_InvalidPeriod(t *testing.T) {
	for _, tc := range []struct{ month, year int }{
		{0, 2024}, {13, 2024}, {6, 1999}, {6, 2101},
	} {
		expense := threeTenantExpense()
		expense.Month = tc.month
		expense.Year = tc.year
		if !hasIssue(allocation.Validate(expense, threeTenants()), allocation.InvalidPeriod) {
			t.Errorf("expected InvalidPeriod for %d-%d", tc.year, tc.month)
		}
	}
}

func TestValidate_NoActiveTenants(t *testing.T) {
	tenants := threeTenants()
	for i := range tenants {
		tenants[i].Active = false
	}

	if !hasIssue(allocation.Validate(threeTenantExpense(), tenants), allocation.NoActiveTenants) {
		t.Error("expected NoActiveTenants")
	}
}

func TestValidate_IssuesDoNotBlockCalculation(t *testing.T) {
	// Validation is advisory: a run with issues still allocates.
	expense := threeTenantExpense()
	expense.ACKWh = 310 // mismatch

	issues := allocation.Validate(expense, threeTenants())
	if len(issues) == 0 {
		t.Fatal("fixture should produce issues")
	}

	result := allocation.Allocate(expense,
		billFor(expense), threeTenants(), allocation.MethodSimpleAverage, allocation.Options{})
	if result.ActiveTenantCount != 3 {
		t.Error("allocation should proceed despite validation issues")
	}
}
