/*
handlers.go - HTTP API handlers for the tenancy billing system

PURPOSE:
  Exposes property/tenant/expense data entry and the billing calculation
  via REST. Handlers do HTTP parsing and JSON serialization; the actual
  arithmetic lives entirely in the tariff and allocation packages, which
  receive plain structs and return plain structs.

ENDPOINTS:
  Properties:
    GET    /api/properties                       List properties
    POST   /api/properties                       Create/update property
    GET    /api/properties/{id}                  Get property
    GET    /api/properties/{id}/units            List units
    POST   /api/properties/{id}/units            Create/update unit
    GET    /api/properties/{id}/tenants          List tenants
    POST   /api/properties/{id}/tenants          Create/update tenant
    GET    /api/properties/{id}/expenses         List expense records
    POST   /api/properties/{id}/expenses         Create/update expense record
    POST   /api/properties/{id}/calculate        Run an allocation
    GET    /api/properties/{id}/results          List stored results
    GET    /api/properties/{id}/results/{year}/{month}/export?format=pdf|csv|xlsx

  Tenants:
    POST   /api/tenants/{id}/readings            Record a sub-meter reading

  Tariff:
    GET    /api/tariff/preview?kwh=680           Itemized theoretical bill

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input
  - 404: Resource not found
  - 500: Internal errors
  Billing-domain validation issues are NOT HTTP errors: the calculation
  endpoint surfaces them in the response and still runs, matching the
  data-entry workflow where the operator decides whether to fix and rerun.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/tenancy-billing/allocation"
	"github.com/warp/tenancy-billing/export"
	"github.com/warp/tenancy-billing/store/sqlite"
	"github.com/warp/tenancy-billing/tariff"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.Store.ListProperties(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list properties", err)
		return
	}

	dtos := make([]PropertyDTO, len(properties))
	for i, p := range properties {
		dtos[i] = toPropertyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveProperty(w http.ResponseWriter, r *http.Request) {
	var req SavePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Property name is required", nil)
		return
	}

	saved, err := h.Store.SaveProperty(r.Context(), sqlite.Property{
		ID:                  req.ID,
		Name:                req.Name,
		Address:             req.Address,
		BaseRent:            req.BaseRent,
		InternetFee:         req.InternetFee,
		HasIndividualMeters: req.HasIndividualMeters,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save property", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPropertyDTO(saved))
}

func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	prop, err := h.Store.GetProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get property", err)
		return
	}
	if prop == nil {
		writeError(w, http.StatusNotFound, "Property not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyDTO(*prop))
}

// =============================================================================
// UNIT AND TENANT HANDLERS
// =============================================================================

func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.Store.ListUnits(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list units", err)
		return
	}

	dtos := make([]UnitDTO, len(units))
	for i, u := range units {
		dtos[i] = UnitDTO{ID: u.ID, PropertyID: u.PropertyID, Name: u.Name, MonthlyRent: u.MonthlyRent}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveUnit(w http.ResponseWriter, r *http.Request) {
	var req SaveUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved, err := h.Store.SaveUnit(r.Context(), sqlite.Unit{
		ID:          req.ID,
		PropertyID:  chi.URLParam(r, "id"),
		Name:        req.Name,
		MonthlyRent: req.MonthlyRent,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save unit", err)
		return
	}
	writeJSON(w, http.StatusCreated, UnitDTO{
		ID: saved.ID, PropertyID: saved.PropertyID, Name: saved.Name, MonthlyRent: saved.MonthlyRent,
	})
}

func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Store.ListTenants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenants", err)
		return
	}

	dtos := make([]TenantDTO, len(tenants))
	for i, t := range tenants {
		dtos[i] = toTenantDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveTenant(w http.ResponseWriter, r *http.Request) {
	var req SaveTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Tenant name is required", nil)
		return
	}

	saved, err := h.Store.SaveTenant(r.Context(), sqlite.Tenant{
		ID:         req.ID,
		PropertyID: chi.URLParam(r, "id"),
		UnitID:     req.UnitID,
		Name:       req.Name,
		Phone:      req.Phone,
		IsActive:   req.IsActive,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save tenant", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenantDTO(saved))
}

// SaveReading records a tenant's sub-meter pair for a billing period.
func (h *Handler) SaveReading(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")

	tenant, err := h.Store.GetTenant(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tenant", err)
		return
	}
	if tenant == nil {
		writeError(w, http.StatusNotFound, "Tenant not found", nil)
		return
	}

	var req SaveReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "Month must be between 1 and 12", nil)
		return
	}

	saved, err := h.Store.SaveReading(r.Context(), sqlite.MeterReading{
		TenantID:    tenantID,
		Year:        req.Year,
		Month:       req.Month,
		PreviousKWh: req.PreviousKWh,
		CurrentKWh:  req.CurrentKWh,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save reading", err)
		return
	}
	writeJSON(w, http.StatusCreated, ReadingDTO{
		TenantID:    saved.TenantID,
		Year:        saved.Year,
		Month:       saved.Month,
		PreviousKWh: saved.PreviousKWh,
		CurrentKWh:  saved.CurrentKWh,
		UsageKWh:    saved.CurrentKWh - saved.PreviousKWh,
	})
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Store.ListExpenses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expenses", err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveExpense(w http.ResponseWriter, r *http.Request) {
	var req SaveExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved, err := h.Store.SaveExpense(r.Context(), sqlite.Expense{
		PropertyID:         chi.URLParam(r, "id"),
		Year:               req.Year,
		Month:              req.Month,
		TotalKWh:           req.TotalKWh,
		ACKWh:              req.ACKWh,
		BaseRent:           req.BaseRent,
		InternetFee:        req.InternetFee,
		WaterBill:          req.WaterBill,
		Miscellaneous:      req.Miscellaneous,
		SplitMiscellaneous: req.SplitMiscellaneous,
		InvoicedTotal:      req.InvoicedTotal,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(saved))
}

// =============================================================================
// CALCULATION
// =============================================================================

// Calculate runs the tariff + allocation pipeline for a stored period and
// persists the result, superseding any earlier run for that expense.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	propertyID := chi.URLParam(r, "id")

	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	method := allocation.Method(req.Method)
	if !method.Valid() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown method %q (use %q or %q)", req.Method,
				allocation.MethodSimpleAverage, allocation.MethodLayeredPrecise), nil)
		return
	}

	prop, err := h.Store.GetProperty(ctx, propertyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get property", err)
		return
	}
	if prop == nil {
		writeError(w, http.StatusNotFound, "Property not found", nil)
		return
	}

	expense, err := h.Store.GetExpense(ctx, propertyID, req.Year, req.Month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get expense", err)
		return
	}
	if expense == nil {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("No expense record for %d-%02d", req.Year, req.Month), nil)
		return
	}

	input, err := h.buildAllocationInput(r, *prop, *expense)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to assemble calculation inputs", err)
		return
	}

	issues := allocation.Validate(input.expense, input.tenants)
	bill := tariff.ComputeBill(input.expense.TotalKWh, expense.InvoicedTotal)
	result := allocation.Allocate(input.expense, bill, input.tenants, method, input.opts)

	rec := sqlite.CalculationRecord{
		PropertyID:        propertyID,
		ExpenseID:         expense.ID,
		Year:              req.Year,
		Month:             req.Month,
		Method:            string(result.Method),
		TotalAmount:       result.TotalAmount.Float64(),
		ActiveTenantCount: result.ActiveTenantCount,
		CalculatedAt:      result.CalculatedAt,
	}
	for _, b := range result.Breakdowns {
		rec.Breakdowns = append(rec.Breakdowns, toStoredBreakdown(b))
	}
	saved, err := h.Store.SaveResult(ctx, rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save result", err)
		return
	}

	billDTO := toBillDTO(bill)
	dto := CalculationDTO{
		ID:                saved.ID,
		PropertyID:        propertyID,
		Year:              req.Year,
		Month:             req.Month,
		Method:            string(result.Method),
		TotalAmount:       result.TotalAmount.Float64(),
		BreakdownSum:      result.BreakdownSum().Float64(),
		ActiveTenantCount: result.ActiveTenantCount,
		Breakdowns:        make([]BreakdownDTO, 0, len(result.Breakdowns)),
		Bill:              &billDTO,
		ValidationIssues:  allocation.Messages(issues),
		CalculatedAt:      result.CalculatedAt.Format(time.RFC3339),
	}
	for _, b := range result.Breakdowns {
		dto.Breakdowns = append(dto.Breakdowns, toBreakdownDTO(b))
	}
	writeJSON(w, http.StatusOK, dto)
}

// allocationInput bundles the engine's plain-struct inputs assembled from
// the stored records.
type allocationInput struct {
	expense allocation.MonthlyExpense
	tenants []allocation.Tenant
	opts    allocation.Options
}

func (h *Handler) buildAllocationInput(r *http.Request, prop sqlite.Property, expense sqlite.Expense) (allocationInput, error) {
	ctx := r.Context()

	storedTenants, err := h.Store.ListTenants(ctx, prop.ID)
	if err != nil {
		return allocationInput{}, err
	}
	readings, err := h.Store.ReadingsForPeriod(ctx, prop.ID, expense.Year, expense.Month)
	if err != nil {
		return allocationInput{}, err
	}
	units, err := h.Store.ListUnits(ctx, prop.ID)
	if err != nil {
		return allocationInput{}, err
	}

	rentByUnit := make(map[string]float64, len(units))
	for _, u := range units {
		rentByUnit[u.ID] = u.MonthlyRent
	}

	tenants := make([]allocation.Tenant, 0, len(storedTenants))
	assignedRents := make(map[string]float64)
	for _, t := range storedTenants {
		reading := readings[t.ID]
		tenants = append(tenants, allocation.Tenant{
			ID:     t.ID,
			Name:   t.Name,
			Active: t.IsActive,
			Reading: allocation.UsageReading{
				Previous: reading.PreviousKWh,
				Current:  reading.CurrentKWh,
			},
		})
		if t.UnitID != nil {
			if rent, ok := rentByUnit[*t.UnitID]; ok {
				assignedRents[t.ID] = rent
			}
		}
	}

	// Property-level rent/fee configuration wins; the expense record fills
	// in only when the property carries none.
	monthly := allocation.MonthlyExpense{
		Month:              expense.Month,
		Year:               expense.Year,
		TotalKWh:           expense.TotalKWh,
		ACKWh:              expense.ACKWh,
		BaseRent:           expense.BaseRent,
		InternetFee:        expense.InternetFee,
		WaterBill:          expense.WaterBill,
		Miscellaneous:      expense.Miscellaneous,
		SplitMiscellaneous: expense.SplitMiscellaneous,
		InvoicedTotal:      expense.InvoicedTotal,
	}
	if prop.BaseRent > 0 {
		monthly.BaseRent = prop.BaseRent
	}
	if prop.InternetFee > 0 {
		monthly.InternetFee = prop.InternetFee
	}

	return allocationInput{
		expense: monthly,
		tenants: tenants,
		opts: allocation.Options{
			HasIndividualMeters: prop.HasIndividualMeters,
			AssignedRents:       assignedRents,
		},
	}, nil
}

// =============================================================================
// RESULTS AND EXPORT
// =============================================================================

func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListResults(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list results", err)
		return
	}

	dtos := make([]CalculationDTO, len(records))
	for i, rec := range records {
		dtos[i] = toCalculationDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func toCalculationDTO(rec sqlite.CalculationRecord) CalculationDTO {
	dto := CalculationDTO{
		ID:                rec.ID,
		PropertyID:        rec.PropertyID,
		Year:              rec.Year,
		Month:             rec.Month,
		Method:            rec.Method,
		TotalAmount:       rec.TotalAmount,
		ActiveTenantCount: rec.ActiveTenantCount,
		Breakdowns:        make([]BreakdownDTO, 0, len(rec.Breakdowns)),
		CalculatedAt:      rec.CalculatedAt.Format(time.RFC3339),
	}
	var sum float64
	for _, b := range rec.Breakdowns {
		dto.Breakdowns = append(dto.Breakdowns, storedBreakdownDTO(b))
		sum += b.TotalAmount
	}
	dto.BreakdownSum = sum
	return dto
}

// ExportResult streams a stored result as a PDF, CSV or XLSX receipt.
func (h *Handler) ExportResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	propertyID := chi.URLParam(r, "id")
	year, errY := strconv.Atoi(chi.URLParam(r, "year"))
	month, errM := strconv.Atoi(chi.URLParam(r, "month"))
	if errY != nil || errM != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", nil)
		return
	}

	prop, err := h.Store.GetProperty(ctx, propertyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get property", err)
		return
	}
	if prop == nil {
		writeError(w, http.StatusNotFound, "Property not found", nil)
		return
	}

	expense, err := h.Store.GetExpense(ctx, propertyID, year, month)
	if err != nil || expense == nil {
		writeError(w, http.StatusNotFound, "No expense record for that period", err)
		return
	}
	rec, err := h.Store.GetResult(ctx, expense.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get result", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "No calculation result for that period", nil)
		return
	}

	stmt := toStatement(prop.Name, *rec)
	filename := fmt.Sprintf("%s-%d-%02d", prop.Name, year, month)

	switch format := r.URL.Query().Get("format"); format {
	case "csv":
		data, err := export.BuildStatementCSV(stmt)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to build CSV", err)
			return
		}
		serveAttachment(w, data, filename+".csv", "text/csv")
	case "xlsx":
		data, err := export.BuildStatementXLSX(stmt)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to build XLSX", err)
			return
		}
		serveAttachment(w, data, filename+".xlsx",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	case "", "pdf":
		data, err := export.BuildStatementPDF(stmt)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to build PDF", err)
			return
		}
		serveAttachment(w, data, filename+".pdf", "application/pdf")
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown export format %q", format), nil)
	}
}

func toStatement(propertyName string, rec sqlite.CalculationRecord) export.Statement {
	stmt := export.Statement{
		PropertyName:      propertyName,
		Year:              rec.Year,
		Month:             rec.Month,
		Method:            rec.Method,
		TotalAmount:       rec.TotalAmount,
		ActiveTenantCount: rec.ActiveTenantCount,
		CalculatedAt:      rec.CalculatedAt,
	}
	for _, b := range rec.Breakdowns {
		stmt.Lines = append(stmt.Lines, export.Line{
			TenantName:        b.TenantName,
			UsageKWh:          b.UsageKWh,
			Rent:              b.RentShare,
			Internet:          b.InternetShare,
			Water:             b.WaterShare,
			CommonElectricity: b.CommonElectricityShare,
			IndividualUsage:   b.IndividualUsageCost,
			Miscellaneous:     b.MiscellaneousShare,
			Total:             b.TotalAmount,
		})
	}
	return stmt
}

// =============================================================================
// TARIFF PREVIEW
// =============================================================================

// PreviewBill returns the itemized theoretical bill for a usage figure.
// Lets the operator sanity-check a transcribed invoice before saving it.
func (h *Handler) PreviewBill(w http.ResponseWriter, r *http.Request) {
	kWh, err := strconv.ParseFloat(r.URL.Query().Get("kwh"), 64)
	if err != nil || kWh < 0 {
		writeError(w, http.StatusBadRequest, "Query parameter kwh must be a non-negative number", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillDTO(tariff.ComputeBill(kWh, nil)))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================


func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		log.Printf("%s: %v", message, err)
	}
	writeJSON(w, status, ErrorResponse{Error: message})
}

func serveAttachment(w http.ResponseWriter, data []byte, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
