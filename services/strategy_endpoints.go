package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/krshsl/brandcast/models"
)

type StrategyEndpoints struct {
	strategies *StrategyService
	interviews InterviewStore
}

func NewStrategyEndpoints(strategies *StrategyService, interviews InterviewStore) *StrategyEndpoints {
	return &StrategyEndpoints{strategies: strategies, interviews: interviews}
}

type GenerateStrategyRequest struct {
	InterviewID string `json:"interview_id"`
}

type GetStrategiesResponse struct {
	Strategies []models.Strategy `json:"strategies"`
	Count      int               `json:"count"`
}

func (e *StrategyEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/strategies", func(r chi.Router) {
		r.Post("/generate", e.GenerateStrategyHandler)
		r.Get("/", e.ListStrategiesHandler)
		r.Get("/latest", e.LatestStrategyHandler)
		r.Get("/interview/{interviewID}", e.GetStrategyByInterviewHandler)
		r.Get("/{id}", e.GetStrategyHandler)
		r.Put("/{id}", e.UpdateStrategyHandler)
	})
}

func (e *StrategyEndpoints) authorize(ctx context.Context, id string) (*models.Strategy, error) {
	strategy, err := e.strategies.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := owned("strategy", id, strategy.UserID, OwnerFromContext(ctx)); err != nil {
		return nil, err
	}
	return strategy, nil
}

func (e *StrategyEndpoints) GenerateStrategyHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateStrategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.InterviewID = strings.TrimSpace(req.InterviewID)
	if req.InterviewID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "interview_id is required"})
		return
	}

	interview, err := e.interviews.GetInterview(r.Context(), req.InterviewID)
	if err != nil {
		writeError(w, err)
		return
	}
	if interview == nil || interview.UserID != OwnerFromContext(r.Context()) {
		writeError(w, notFound("interview", req.InterviewID))
		return
	}

	strategy, err := e.strategies.Generate(r.Context(), req.InterviewID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, strategy)
}

func (e *StrategyEndpoints) ListStrategiesHandler(w http.ResponseWriter, r *http.Request) {
	strategies, err := e.strategies.List(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GetStrategiesResponse{Strategies: strategies, Count: len(strategies)})
}

func (e *StrategyEndpoints) LatestStrategyHandler(w http.ResponseWriter, r *http.Request) {
	strategy, err := e.strategies.Latest(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategy)
}

func (e *StrategyEndpoints) GetStrategyByInterviewHandler(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewID")
	strategy, err := e.strategies.GetByInterview(r.Context(), interviewID)
	if err == nil {
		err = owned("strategy for interview", interviewID, strategy.UserID, OwnerFromContext(r.Context()))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategy)
}

func (e *StrategyEndpoints) GetStrategyHandler(w http.ResponseWriter, r *http.Request) {
	strategy, err := e.authorize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategy)
}

func (e *StrategyEndpoints) UpdateStrategyHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	var patch StrategyPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}

	strategy, err := e.strategies.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategy)
}
