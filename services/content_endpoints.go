package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/krshsl/brandcast/models"
	"github.com/krshsl/brandcast/repository"
)

type ContentEndpoints struct {
	generator  *ContentGenerator
	content    *ContentService
	publisher  *PublishingOrchestrator
	strategies *StrategyService
}

func NewContentEndpoints(generator *ContentGenerator, content *ContentService, publisher *PublishingOrchestrator, strategies *StrategyService) *ContentEndpoints {
	return &ContentEndpoints{
		generator:  generator,
		content:    content,
		publisher:  publisher,
		strategies: strategies,
	}
}

type GenerateContentRequest struct {
	StrategyID       string   `json:"strategy_id"`
	Platforms        []string `json:"platforms,omitempty"`
	PostsPerPlatform int      `json:"posts_per_platform"`
}

type GetPostsResponse struct {
	Posts []models.Post `json:"posts"`
	Count int           `json:"count"`
}

type BulkPostsRequest struct {
	PostIDs []string `json:"post_ids"`
}

type RegenerateRequest struct {
	Instructions string `json:"instructions,omitempty"`
}

type ScheduleRequest struct {
	ScheduledTime time.Time `json:"scheduled_time"`
}

type AccountsResponse struct {
	Accounts  []SocialAccount `json:"accounts"`
	Simulated bool            `json:"simulated"`
}

func (e *ContentEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/content", func(r chi.Router) {
		r.Post("/generate", e.GenerateContentHandler)
		r.Get("/", e.ListPostsHandler)
		r.Get("/strategy/{strategyID}", e.ListStrategyPostsHandler)
		r.Get("/accounts", e.AccountsHandler)
		r.Post("/accounts/refresh", e.RefreshAccountsHandler)
		r.Post("/bulk-approve", e.BulkApproveHandler)
		r.Post("/bulk-post", e.BulkPostHandler)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", e.GetPostHandler)
			r.Put("/", e.UpdatePostHandler)
			r.Delete("/", e.DeletePostHandler)
			r.Post("/regenerate", e.RegenerateHandler)
			r.Post("/approve", e.ApproveHandler)
			r.Post("/reject", e.RejectHandler)
			r.Post("/publish", e.PublishHandler)
			r.Post("/schedule", e.ScheduleHandler)
			r.Delete("/schedule", e.CancelScheduleHandler)
			r.Get("/analytics", e.AnalyticsHandler)
		})
	})
}

func (e *ContentEndpoints) authorize(ctx context.Context, id string) (*models.Post, error) {
	post, err := e.content.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := owned("post", id, post.UserID, OwnerFromContext(ctx)); err != nil {
		return nil, err
	}
	return post, nil
}

func statusFilter(r *http.Request) (models.PostStatus, error) {
	value := r.URL.Query().Get("status")
	if value == "" {
		return "", nil
	}
	status, ok := models.ParsePostStatus(value)
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, value)
	}
	return status, nil
}

func (e *ContentEndpoints) GenerateContentHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateContentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	strategy, err := e.strategies.Get(r.Context(), strings.TrimSpace(req.StrategyID))
	if err == nil {
		err = owned("strategy", req.StrategyID, strategy.UserID, OwnerFromContext(r.Context()))
	}
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := e.generator.GenerateBatch(r.Context(), strategy.ID, req.Platforms, req.PostsPerPlatform)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (e *ContentEndpoints) ListPostsHandler(w http.ResponseWriter, r *http.Request) {
	status, err := statusFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	e.writePosts(w, r, repository.PostFilter{UserID: OwnerFromContext(r.Context()), Status: status})
}

func (e *ContentEndpoints) ListStrategyPostsHandler(w http.ResponseWriter, r *http.Request) {
	status, err := statusFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	e.writePosts(w, r, repository.PostFilter{
		UserID:     OwnerFromContext(r.Context()),
		StrategyID: chi.URLParam(r, "strategyID"),
		Status:     status,
	})
}

func (e *ContentEndpoints) writePosts(w http.ResponseWriter, r *http.Request, filter repository.PostFilter) {
	posts, err := e.content.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GetPostsResponse{Posts: posts, Count: len(posts)})
}

func (e *ContentEndpoints) AccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := e.publisher.Accounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountsResponse{Accounts: accounts, Simulated: e.publisher.Simulated()})
}

func (e *ContentEndpoints) RefreshAccountsHandler(w http.ResponseWriter, r *http.Request) {
	e.publisher.InvalidateAccounts()
	e.AccountsHandler(w, r)
}

// ownedIDs splits ids into those the caller owns and the positions of the rest
func (e *ContentEndpoints) ownedIDs(ctx context.Context, ids []string) ([]string, map[int]bool) {
	mine := make([]string, 0, len(ids))
	foreign := make(map[int]bool)
	for i, id := range ids {
		if _, err := e.authorize(ctx, id); err != nil {
			foreign[i] = true
			continue
		}
		mine = append(mine, id)
	}
	return mine, foreign
}

func (e *ContentEndpoints) BulkApproveHandler(w http.ResponseWriter, r *http.Request) {
	var req BulkPostsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	mine, foreign := e.ownedIDs(r.Context(), req.PostIDs)
	approved := e.publisher.BulkApprove(r.Context(), mine)

	outcomes := make([]BulkOutcome, 0, len(req.PostIDs))
	for i, id := range req.PostIDs {
		if foreign[i] {
			outcomes = append(outcomes, BulkOutcome{PostID: id, Error: notFound("post", id).Error()})
			continue
		}
		outcomes = append(outcomes, approved[0])
		approved = approved[1:]
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

func (e *ContentEndpoints) BulkPostHandler(w http.ResponseWriter, r *http.Request) {
	var req BulkPostsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	mine, foreign := e.ownedIDs(r.Context(), req.PostIDs)
	posted := e.publisher.BulkPost(r.Context(), mine)

	results := make([]PublishResult, 0, len(req.PostIDs))
	for i, id := range req.PostIDs {
		if foreign[i] {
			results = append(results, PublishResult{PostID: id, Outcome: OutcomeNotFound, Error: notFound("post", id).Error()})
			continue
		}
		results = append(results, posted[0])
		posted = posted[1:]
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "simulated": e.publisher.Simulated()})
}

func (e *ContentEndpoints) GetPostHandler(w http.ResponseWriter, r *http.Request) {
	post, err := e.authorize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (e *ContentEndpoints) UpdatePostHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	var patch PostPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	post, err := e.content.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (e *ContentEndpoints) DeletePostHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if err := e.content.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}

func (e *ContentEndpoints) RegenerateHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	var req RegenerateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	post, err := e.generator.Regenerate(r.Context(), id, req.Instructions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (e *ContentEndpoints) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	e.changeStatus(w, r, e.publisher.Approve)
}

func (e *ContentEndpoints) RejectHandler(w http.ResponseWriter, r *http.Request) {
	e.changeStatus(w, r, e.publisher.Reject)
}

func (e *ContentEndpoints) CancelScheduleHandler(w http.ResponseWriter, r *http.Request) {
	e.changeStatus(w, r, e.publisher.CancelSchedule)
}

func (e *ContentEndpoints) changeStatus(w http.ResponseWriter, r *http.Request, change func(context.Context, string) (*models.Post, error)) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	post, err := change(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (e *ContentEndpoints) PublishHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	result, err := e.publisher.PublishNow(r.Context(), id)
	writePublishResult(w, result, err)
}

func (e *ContentEndpoints) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ScheduledTime.IsZero() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "scheduled_time is required"})
		return
	}
	result, err := e.publisher.Schedule(r.Context(), id, req.ScheduledTime)
	writePublishResult(w, result, err)
}

// writePublishResult keeps the structured result in the body even when the attempt failed
func writePublishResult(w http.ResponseWriter, result *PublishResult, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, result)
		return
	}
	status, _ := errorStatus(err)
	if result == nil || status == http.StatusInternalServerError {
		writeError(w, err)
		return
	}
	writeJSON(w, status, result)
}

func (e *ContentEndpoints) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := e.authorize(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	result, err := e.publisher.Analytics(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
