package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/preorder-gather/internal/api/dto"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/storage"
)

// RunsHandler handles pipeline run HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent runs, newest first.
func (h *RunsHandler) List(c *gin.Context) {
	limit := ParseIntParam(c, "limit", 20)

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(c, http.StatusOK, response)
}

// Get handles GET /api/runs/:id - returns a single run.
func (h *RunsHandler) Get(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	h.WriteJSON(c, http.StatusOK, toRunResponse(*run))
}

// Orders handles GET /api/runs/:id/orders - returns the run's classified
// orders, optionally filtered by class and customer.
func (h *RunsHandler) Orders(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}

	list, err := h.repo.ListOrderRecords(storage.OrderRecordFilters{
		RunID:    run.ID,
		Class:    c.Query("class"),
		Customer: c.Query("customer"),
		Limit:    ParseIntParam(c, "limit", 50),
		Offset:   ParseIntParam(c, "offset", 0),
	})
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.OrderRecordListResponse{
		Orders:     make([]dto.OrderRecordResponse, 0, len(list.Records)),
		TotalCount: list.TotalCount,
		Limit:      list.Limit,
		Offset:     list.Offset,
	}
	for _, rec := range list.Records {
		response.Orders = append(response.Orders, toOrderRecordResponse(rec))
	}

	h.WriteJSON(c, http.StatusOK, response)
}

// Discrepancies handles GET /api/runs/:id/discrepancies.
func (h *RunsHandler) Discrepancies(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}

	records, err := h.repo.ListDiscrepancies(run.ID)
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.DiscrepancyListResponse{
		RunID:         run.ID,
		Discrepancies: make([]dto.DiscrepancyResponse, 0, len(records)),
		Count:         len(records),
	}
	for _, d := range records {
		resp := dto.DiscrepancyResponse{
			ItemName:    d.ItemName,
			Expected:    d.Expected,
			Actual:      d.Actual,
			Difference:  d.Actual - d.Expected,
			Occurrences: make([]dto.OccurrenceResponse, 0, len(d.Occurrences)),
		}
		for _, occ := range d.Occurrences {
			resp.Occurrences = append(resp.Occurrences, dto.OccurrenceResponse{
				Customer:  occ.Customer,
				OrderID:   occ.OrderID,
				Quantity:  occ.Quantity,
				Status:    occ.Status,
				CreatedAt: formatTime(occ.CreatedAt),
			})
		}
		response.Discrepancies = append(response.Discrepancies, resp)
	}

	h.WriteJSON(c, http.StatusOK, response)
}

// lookup loads the run named by the :id path parameter, writing the error
// response itself when it cannot.
func (h *RunsHandler) lookup(c *gin.Context) (*storage.PipelineRun, bool) {
	id := c.Param("id")
	if id == "" {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return nil, false
	}

	run, err := h.repo.GetRun(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(c, http.StatusNotFound, dto.NotFoundError("run"))
		return nil, false
	}
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return nil, false
	}
	return run, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// toRunResponse converts a storage PipelineRun to an API response.
func toRunResponse(run storage.PipelineRun) dto.RunResponse {
	resp := dto.RunResponse{
		ID:               run.ID,
		StartDate:        run.StartDate,
		StartedAt:        formatTime(run.StartedAt),
		DryRun:           run.DryRun,
		Status:           run.Status,
		OrdersFound:      run.OrdersFound,
		OrdersProcessed:  run.OrdersProcessed,
		OrdersErrored:    run.OrdersErrored,
		DiscrepancyCount: run.DiscrepancyCount,
		Counts:           run.Counts,
		CatalogHits:      run.CatalogHits,
		CatalogFetches:   run.CatalogFetches,
		CatalogFailures:  run.CatalogFailures,
		ErrorMessage:     run.ErrorMessage,
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = formatTime(*run.CompletedAt)
	}
	return resp
}

// toOrderRecordResponse converts a storage OrderRecord to an API response.
func toOrderRecordResponse(rec *storage.OrderRecord) dto.OrderRecordResponse {
	resp := dto.OrderRecordResponse{
		OrderID:          rec.OrderID,
		Customer:         rec.Customer,
		CreatedAt:        formatTime(rec.CreatedAt),
		State:            rec.State,
		FulfillmentState: rec.FulfillmentState,
		Class:            rec.Class,
		Rule:             rec.Rule,
		Forced:           rec.Forced,
		Units:            rec.Units,
		Items:            make([]dto.ItemResponse, 0, len(rec.Items)),
		ErrorMessage:     rec.ErrorMessage,
	}
	for _, item := range rec.Items {
		resp.Items = append(resp.Items, dto.ItemResponse{
			CatalogID: item.CatalogID,
			Name:      item.Name,
			Quantity:  item.Quantity,
		})
	}
	return resp
}
