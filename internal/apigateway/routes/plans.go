// Package routes registers the planning service's HTTP endpoints on a
// chi.Router.
package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fieldplan/allocator/internal/advisory"
	"github.com/fieldplan/allocator/internal/planservice"
	coreerrors "github.com/fieldplan/allocator/internal/utils/errors"
	"github.com/fieldplan/allocator/internal/utils/logger"
	"github.com/fieldplan/allocator/internal/utils/validator"
	"github.com/fieldplan/allocator/pkg/constants"
	"github.com/fieldplan/allocator/pkg/dto"
)

const maxPlanRequestBody = 2 << 20 // 2 MiB

// PlanHandlers holds the dependencies the plan routes need. Advisory may
// be nil, in which case responses omit the narrative field.
type PlanHandlers struct {
	Service   *planservice.Service
	Advisory  *advisory.Client
	Validator *validator.CustomValidator
	Log       *zap.Logger
}

// RegisterPlanRoutes mounts the /v1/plans endpoints on router.
func RegisterPlanRoutes(router chi.Router, h *PlanHandlers) {
	router.Route("/v1/plans", func(r chi.Router) {
		r.Post("/", h.createPlan)
		r.Post("/{planID}/adjust", h.adjustPlan)
	})
}

func (h *PlanHandlers) createPlan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanRequest
	body := http.MaxBytesReader(w, r.Body, maxPlanRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.Validator.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	params := planservice.PlanParams{
		Fields:       req.ToCoreFields(),
		Crops:        req.ToCoreCrops(),
		HorizonStart: req.HorizonStart,
		HorizonEnd:   req.HorizonEnd,
		Objective:    req.ToCoreObjective(),
		Config:       req.ToCoreConfig(),
	}
	if req.MaxComputationMs > 0 {
		params.MaxComputationTime = time.Duration(req.MaxComputationMs) * time.Millisecond
	}

	result, err := h.Service.BuildPlan(r.Context(), params)
	if err != nil {
		logger.Error(h.Log, "plan creation failed", err, zap.String("summary", req.FieldCountSummary()))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := dto.FromCoreResult(result)
	if h.Advisory != nil {
		if narrative, err := h.Advisory.Narrate(r.Context(), result); err != nil {
			logger.Error(h.Log, "advisory narration failed", err, zap.String("plan_id", result.PlanID))
		} else {
			resp.Advisory = narrative
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *PlanHandlers) adjustPlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	if planID == "" {
		writeError(w, http.StatusBadRequest, "plan id is required")
		return
	}

	var req dto.AdjustRequest
	body := http.MaxBytesReader(w, r.Body, maxPlanRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.Validator.ValidateStruct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.Service.AdjustPlan(r.Context(), planID, req.AllocationID, req.NewAreaM2)
	if err != nil {
		logger.Error(h.Log, "plan adjustment failed", err, zap.String("plan_id", planID))
		status := http.StatusUnprocessableEntity
		if coreerrors.Is(err, constants.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.FromCoreResult(result))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
