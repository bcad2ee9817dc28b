/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine and storage models from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Handlers validate; DTOs are pure data carriers. Billing-domain validation
  (meter monotonicity, usage consistency) lives in the allocation package
  and is surfaced verbatim in CalculationDTO.ValidationIssues.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/tenancy-billing/allocation"
	"github.com/warp/tenancy-billing/store/sqlite"
	"github.com/warp/tenancy-billing/tariff"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// PropertyDTO represents a property in API responses.
type PropertyDTO struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Address             string  `json:"address,omitempty"`
	BaseRent            float64 `json:"base_rent"`
	InternetFee         float64 `json:"internet_fee"`
	HasIndividualMeters bool    `json:"has_individual_meters"`
	CreatedAt           string  `json:"created_at,omitempty"`
}

// SavePropertyRequest creates or updates a property.
type SavePropertyRequest struct {
	ID                  string  `json:"id,omitempty"`
	Name                string  `json:"name"`
	Address             string  `json:"address,omitempty"`
	BaseRent            float64 `json:"base_rent"`
	InternetFee         float64 `json:"internet_fee"`
	HasIndividualMeters bool    `json:"has_individual_meters"`
}

// UnitDTO represents a rental unit.
type UnitDTO struct {
	ID          string  `json:"id"`
	PropertyID  string  `json:"property_id"`
	Name        string  `json:"name"`
	MonthlyRent float64 `json:"monthly_rent"`
}

// SaveUnitRequest creates or updates a unit.
type SaveUnitRequest struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	MonthlyRent float64 `json:"monthly_rent"`
}

// TenantDTO represents a tenant.
type TenantDTO struct {
	ID         string  `json:"id"`
	PropertyID string  `json:"property_id"`
	UnitID     *string `json:"unit_id,omitempty"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone,omitempty"`
	IsActive   bool    `json:"is_active"`
}

// SaveTenantRequest creates or updates a tenant.
type SaveTenantRequest struct {
	ID       string  `json:"id,omitempty"`
	UnitID   *string `json:"unit_id,omitempty"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone,omitempty"`
	IsActive bool    `json:"is_active"`
}

// SaveReadingRequest records a tenant's sub-meter pair for a period.
type SaveReadingRequest struct {
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	PreviousKWh float64 `json:"previous_kwh"`
	CurrentKWh  float64 `json:"current_kwh"`
}

// ReadingDTO represents a stored meter reading.
type ReadingDTO struct {
	TenantID    string  `json:"tenant_id"`
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	PreviousKWh float64 `json:"previous_kwh"`
	CurrentKWh  float64 `json:"current_kwh"`
	UsageKWh    float64 `json:"usage_kwh"`
}

// ExpenseDTO represents a monthly expense record.
type ExpenseDTO struct {
	ID                 string   `json:"id"`
	PropertyID         string   `json:"property_id"`
	Year               int      `json:"year"`
	Month              int      `json:"month"`
	TotalKWh           float64  `json:"total_kwh"`
	ACKWh              float64  `json:"ac_kwh"`
	BaseRent           float64  `json:"base_rent"`
	InternetFee        float64  `json:"internet_fee"`
	WaterBill          float64  `json:"water_bill"`
	Miscellaneous      float64  `json:"miscellaneous"`
	SplitMiscellaneous bool     `json:"split_miscellaneous"`
	InvoicedTotal      *float64 `json:"invoiced_total,omitempty"`
}

// SaveExpenseRequest creates or updates the expense record for a period.
type SaveExpenseRequest struct {
	Year               int      `json:"year"`
	Month              int      `json:"month"`
	TotalKWh           float64  `json:"total_kwh"`
	ACKWh              float64  `json:"ac_kwh"`
	BaseRent           float64  `json:"base_rent"`
	InternetFee        float64  `json:"internet_fee"`
	WaterBill          float64  `json:"water_bill"`
	Miscellaneous      float64  `json:"miscellaneous"`
	SplitMiscellaneous bool     `json:"split_miscellaneous"`
	InvoicedTotal      *float64 `json:"invoiced_total,omitempty"`
}

// BillDTO is the itemized tariff bill.
type BillDTO struct {
	TotalKWh            float64 `json:"total_kwh"`
	EnergyCharge        float64 `json:"energy_charge"`
	CapacityCharge      float64 `json:"capacity_charge"`
	NetworkCharge       float64 `json:"network_charge"`
	RetailCharge        float64 `json:"retail_charge"`
	EfficiencyIncentive float64 `json:"efficiency_incentive"`
	KWTBBTax            float64 `json:"kwtbb_tax"`
	SSTTax              float64 `json:"sst_tax"`
	CalculatedTotal     float64 `json:"calculated_total"`
	TotalAmount         float64 `json:"total_amount"`
}

// BreakdownDTO is one tenant's share of the month.
type BreakdownDTO struct {
	TenantID               string  `json:"tenant_id"`
	TenantName             string  `json:"tenant_name"`
	UsageKWh               float64 `json:"usage_kwh"`
	RentShare              float64 `json:"rent_share"`
	InternetShare          float64 `json:"internet_share"`
	WaterShare             float64 `json:"water_share"`
	CommonElectricityShare float64 `json:"common_electricity_share"`
	IndividualUsageCost    float64 `json:"individual_usage_cost"`
	MiscellaneousShare     float64 `json:"miscellaneous_share"`
	TotalAmount            float64 `json:"total_amount"`
}

// CalculateRequest triggers an allocation run for a stored expense period.
type CalculateRequest struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Method string `json:"method"` // "simple_average" or "layered_precise"
}

// CalculationDTO is the full outcome of an allocation run.
type CalculationDTO struct {
	ID                string         `json:"id,omitempty"`
	PropertyID        string         `json:"property_id"`
	Year              int            `json:"year"`
	Month             int            `json:"month"`
	Method            string         `json:"method"`
	TotalAmount       float64        `json:"total_amount"`
	BreakdownSum      float64        `json:"breakdown_sum"`
	ActiveTenantCount int            `json:"active_tenant_count"`
	Breakdowns        []BreakdownDTO `json:"breakdowns"`
	Bill              *BillDTO       `json:"bill,omitempty"`
	ValidationIssues  []string       `json:"validation_issues,omitempty"`
	CalculatedAt      string         `json:"calculated_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPropertyDTO(p sqlite.Property) PropertyDTO {
	return PropertyDTO{
		ID:                  p.ID,
		Name:                p.Name,
		Address:             p.Address,
		BaseRent:            p.BaseRent,
		InternetFee:         p.InternetFee,
		HasIndividualMeters: p.HasIndividualMeters,
		CreatedAt:           p.CreatedAt.Format(time.RFC3339),
	}
}

func toTenantDTO(t sqlite.Tenant) TenantDTO {
	return TenantDTO{
		ID:         t.ID,
		PropertyID: t.PropertyID,
		UnitID:     t.UnitID,
		Name:       t.Name,
		Phone:      t.Phone,
		IsActive:   t.IsActive,
	}
}

func toExpenseDTO(e sqlite.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:                 e.ID,
		PropertyID:         e.PropertyID,
		Year:               e.Year,
		Month:              e.Month,
		TotalKWh:           e.TotalKWh,
		ACKWh:              e.ACKWh,
		BaseRent:           e.BaseRent,
		InternetFee:        e.InternetFee,
		WaterBill:          e.WaterBill,
		Miscellaneous:      e.Miscellaneous,
		SplitMiscellaneous: e.SplitMiscellaneous,
		InvoicedTotal:      e.InvoicedTotal,
	}
}

func toBillDTO(b tariff.Bill) BillDTO {
	return BillDTO{
		TotalKWh:            b.TotalKWh,
		EnergyCharge:        b.EnergyCharge.Float64(),
		CapacityCharge:      b.CapacityCharge.Float64(),
		NetworkCharge:       b.NetworkCharge.Float64(),
		RetailCharge:        b.RetailCharge.Float64(),
		EfficiencyIncentive: b.EfficiencyIncentive.Float64(),
		KWTBBTax:            b.KWTBBTax.Float64(),
		SSTTax:              b.SSTTax.Float64(),
		CalculatedTotal:     b.CalculatedTotal.Float64(),
		TotalAmount:         b.TotalAmount.Float64(),
	}
}

func toBreakdownDTO(b allocation.TenantBreakdown) BreakdownDTO {
	return BreakdownDTO{
		TenantID:               b.TenantID,
		TenantName:             b.TenantName,
		UsageKWh:               b.UsageKWh,
		RentShare:              b.RentShare.Float64(),
		InternetShare:          b.InternetShare.Float64(),
		WaterShare:             b.WaterShare.Float64(),
		CommonElectricityShare: b.CommonElectricityShare.Float64(),
		IndividualUsageCost:    b.IndividualUsageCost.Float64(),
		MiscellaneousShare:     b.MiscellaneousShare.Float64(),
		TotalAmount:            b.TotalAmount.Float64(),
	}
}

func toStoredBreakdown(b allocation.TenantBreakdown) sqlite.StoredBreakdown {
	return sqlite.StoredBreakdown{
		TenantID:               b.TenantID,
		TenantName:             b.TenantName,
		UsageKWh:               b.UsageKWh,
		RentShare:              b.RentShare.Float64(),
		InternetShare:          b.InternetShare.Float64(),
		WaterShare:             b.WaterShare.Float64(),
		CommonElectricityShare: b.CommonElectricityShare.Float64(),
		IndividualUsageCost:    b.IndividualUsageCost.Float64(),
		MiscellaneousShare:     b.MiscellaneousShare.Float64(),
		TotalAmount:            b.TotalAmount.Float64(),
	}
}

func storedBreakdownDTO(b sqlite.StoredBreakdown) BreakdownDTO {
	return BreakdownDTO(b)
}
