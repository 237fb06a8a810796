package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/brandcast/models"
	ws "github.com/krshsl/brandcast/websocket"
)

const (
	OutcomePosted        = "posted"
	OutcomeScheduled     = "scheduled"
	OutcomeFailed        = "failed"
	OutcomeNotFound      = "not_found"
	OutcomeInvalidState  = "invalid_state"
	OutcomeNoAccount     = "no_account"
	OutcomeRequiresMedia = "requires_media"

	simulatedIDPrefix    = "simulated_"
	instagramMediaNotice = "Instagram requires an image or video. Please add media to this post before publishing."
)

// PublishResult describes one publish or schedule attempt.
type PublishResult struct {
	PostID         string            `json:"post_id"`
	Platform       models.Platform   `json:"platform,omitempty"`
	Success        bool              `json:"success"`
	Outcome        string            `json:"outcome"`
	Status         models.PostStatus `json:"status,omitempty"`
	PlatformPostID string            `json:"platform_post_id,omitempty"`
	ScheduledTime  *time.Time        `json:"scheduled_time,omitempty"`
	Message        string            `json:"message,omitempty"`
	Error          string            `json:"error,omitempty"`
	RequiresMedia  bool              `json:"requires_media,omitempty"`
	Simulated      bool              `json:"simulated,omitempty"`
}

// BulkOutcome is the per-item result of a bulk status change.
type BulkOutcome struct {
	PostID  string            `json:"post_id"`
	Success bool              `json:"success"`
	Status  models.PostStatus `json:"status,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type AnalyticsResult struct {
	PostID    string          `json:"post_id"`
	Analytics json.RawMessage `json:"analytics"`
	Message   string          `json:"message,omitempty"`
}

// PublishingOrchestrator moves posts through approval, publishing and scheduling.
// A nil or unconfigured aggregator puts it in simulation mode.
type PublishingOrchestrator struct {
	posts      PostStore
	aggregator Aggregator
	locker     Locker
	events     EventPublisher
	now        func() time.Time

	accountsMu     sync.Mutex
	accounts       []SocialAccount
	accountsLoaded bool
}

func NewPublishingOrchestrator(posts PostStore, aggregator Aggregator, locker Locker, events EventPublisher) *PublishingOrchestrator {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &PublishingOrchestrator{
		posts:      posts,
		aggregator: aggregator,
		locker:     locker,
		events:     publisherOrNop(events),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Simulated reports whether publishing skips the aggregator entirely.
func (o *PublishingOrchestrator) Simulated() bool {
	return o.aggregator == nil || !o.aggregator.Configured()
}

func (o *PublishingOrchestrator) Approve(ctx context.Context, postID string) (*models.Post, error) {
	return o.setStatus(ctx, postID, models.PostApproved)
}

func (o *PublishingOrchestrator) Reject(ctx context.Context, postID string) (*models.Post, error) {
	return o.setStatus(ctx, postID, models.PostRejected)
}

// BulkApprove approves each post independently and reports every outcome in input order.
func (o *PublishingOrchestrator) BulkApprove(ctx context.Context, postIDs []string) []BulkOutcome {
	outcomes := make([]BulkOutcome, 0, len(postIDs))
	for _, id := range postIDs {
		post, err := o.Approve(ctx, id)
		if err != nil {
			outcomes = append(outcomes, BulkOutcome{PostID: id, Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, BulkOutcome{PostID: id, Success: true, Status: post.Status})
	}
	return outcomes
}

func (o *PublishingOrchestrator) setStatus(ctx context.Context, postID string, next models.PostStatus) (*models.Post, error) {
	unlock, err := o.locker.Lock(ctx, postLockKey(postID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	post, err := o.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := post.TransitionTo(next, o.now()); err != nil {
		return nil, invalidState(err)
	}
	if err := o.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post status: %w", err)
	}
	o.publishStatus(post)
	return post, nil
}

// PublishNow publishes a post immediately. The result is always non-nil; the error
// classifies why Success is false.
func (o *PublishingOrchestrator) PublishNow(ctx context.Context, postID string) (*PublishResult, error) {
	return o.dispatch(ctx, postID, nil)
}

// Schedule hands the post to the aggregator's scheduler for a future time.
func (o *PublishingOrchestrator) Schedule(ctx context.Context, postID string, at time.Time) (*PublishResult, error) {
	at = at.UTC().Truncate(time.Second)
	if !at.After(o.now()) {
		return &PublishResult{PostID: postID, Outcome: OutcomeInvalidState, Error: "scheduled time must be in the future"},
			fmt.Errorf("%w: scheduled time must be in the future", ErrInvalidInput)
	}
	return o.dispatch(ctx, postID, &at)
}

func (o *PublishingOrchestrator) dispatch(ctx context.Context, postID string, scheduleAt *time.Time) (*PublishResult, error) {
	result := &PublishResult{PostID: postID}

	// held across the aggregator call so an operator edit cannot overwrite the outcome
	unlock, err := o.locker.Lock(ctx, postLockKey(postID))
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result, err
	}
	defer unlock()

	post, err := o.loadPost(ctx, postID)
	if errors.Is(err, ErrNotFound) {
		result.Outcome = OutcomeNotFound
		result.Error = err.Error()
		return result, err
	}
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Error = "failed to load post"
		return result, fmt.Errorf("failed to load post: %w", err)
	}
	result.Platform = post.Platform
	result.Status = post.Status

	if !post.Status.Publishable() {
		err := fmt.Errorf("%w: post is %s", ErrInvalidState, post.Status)
		result.Outcome = OutcomeInvalidState
		result.Error = err.Error()
		return result, err
	}

	if post.Platform == models.PlatformInstagram && strings.TrimSpace(post.MediaURL) == "" {
		result.Outcome = OutcomeRequiresMedia
		result.RequiresMedia = true
		result.Error = instagramMediaNotice
		return result, fmt.Errorf("%w: %s", ErrPrecondition, instagramMediaNotice)
	}

	target := models.PostPosted
	if scheduleAt != nil {
		target = models.PostScheduled
	}

	if o.Simulated() {
		post.PlatformPostID = simulatedIDPrefix + uuid.New().String()
		if scheduleAt != nil {
			post.ScheduledTime = scheduleAt
		}
		if err := o.commit(ctx, post, target, result); err != nil {
			return result, err
		}
		result.Simulated = true
		if scheduleAt != nil {
			result.Message = "Scheduled locally (no aggregator credentials configured)"
		} else {
			result.Message = "Simulated posting (no aggregator credentials configured)"
		}
		slog.Info("Post published in simulation mode", "post_id", post.ID, "platform", post.Platform, "status", post.Status)
		return result, nil
	}

	account, err := o.resolveAccount(ctx, post.Platform)
	if errors.Is(err, ErrNoAccountConnected) {
		// nothing was attempted, so the post keeps its status
		result.Outcome = OutcomeNoAccount
		result.Error = err.Error()
		return result, err
	}
	if err != nil {
		post.LastError = err.Error()
		if commitErr := o.commit(ctx, post, models.PostFailed, result); commitErr != nil {
			return result, commitErr
		}
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		slog.Error("Failed to resolve aggregator account", "error", err, "post_id", post.ID, "platform", post.Platform)
		return result, err
	}

	platformPostID, publishErr := o.aggregator.Publish(ctx, PublishRequest{
		Platform:     post.Platform,
		AccountID:    account.AccountID,
		Text:         post.Content,
		MediaURL:     post.MediaURL,
		ScheduleDate: scheduleAt,
	})
	if publishErr != nil {
		post.LastError = publishErr.Error()
		if err := o.commit(ctx, post, models.PostFailed, result); err != nil {
			return result, err
		}
		result.Outcome = OutcomeFailed
		result.Error = publishErr.Error()
		slog.Error("Aggregator rejected post", "error", publishErr, "post_id", post.ID, "platform", post.Platform)
		return result, collaboratorFailure("publishing", publishErr)
	}

	post.PlatformPostID = platformPostID
	if scheduleAt != nil {
		post.ScheduledTime = scheduleAt
	}
	if err := o.commit(ctx, post, target, result); err != nil {
		return result, err
	}
	if scheduleAt != nil {
		result.Message = "Scheduled successfully"
	} else {
		result.Message = "Posted successfully"
	}
	slog.Info("Post sent to aggregator", "post_id", post.ID, "platform", post.Platform, "status", post.Status, "platform_post_id", platformPostID)
	return result, nil
}

// commit applies the transition, stores the post and fills in the result fields.
func (o *PublishingOrchestrator) commit(ctx context.Context, post *models.Post, next models.PostStatus, result *PublishResult) error {
	if err := post.TransitionTo(next, o.now()); err != nil {
		result.Outcome = OutcomeInvalidState
		result.Error = err.Error()
		return invalidState(err)
	}
	if err := o.posts.UpdatePost(ctx, post); err != nil {
		result.Outcome = OutcomeFailed
		if errors.Is(err, ErrNotFound) {
			result.Outcome = OutcomeNotFound
		}
		result.Error = "failed to store post status"
		return fmt.Errorf("failed to store post status: %w", err)
	}

	result.Status = post.Status
	result.PlatformPostID = post.PlatformPostID
	result.ScheduledTime = post.ScheduledTime
	switch next {
	case models.PostPosted:
		result.Success = true
		result.Outcome = OutcomePosted
	case models.PostScheduled:
		result.Success = true
		result.Outcome = OutcomeScheduled
	}
	o.publishStatus(post)
	return nil
}

// CancelSchedule returns a scheduled post to draft, deleting it at the aggregator when it was sent there.
func (o *PublishingOrchestrator) CancelSchedule(ctx context.Context, postID string) (*models.Post, error) {
	unlock, err := o.locker.Lock(ctx, postLockKey(postID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	post, err := o.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.Status.CanTransitionTo(models.PostDraft) {
		return nil, fmt.Errorf("%w: post is %s, not scheduled", ErrInvalidState, post.Status)
	}

	remote := post.PlatformPostID != "" && !strings.HasPrefix(post.PlatformPostID, simulatedIDPrefix) && !o.Simulated()
	if remote {
		if err := o.aggregator.DeletePost(ctx, post.PlatformPostID); err != nil {
			slog.Error("Failed to delete scheduled post at aggregator", "error", err, "post_id", post.ID)
			return nil, collaboratorFailure("cancel schedule", err)
		}
	}

	if err := post.TransitionTo(models.PostDraft, o.now()); err != nil {
		return nil, invalidState(err)
	}
	if err := o.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to store post status: %w", err)
	}
	o.publishStatus(post)
	slog.Info("Schedule cancelled", "post_id", post.ID, "remote", remote)
	return post, nil
}

// BulkPost publishes every id independently; results line up with postIDs.
func (o *PublishingOrchestrator) BulkPost(ctx context.Context, postIDs []string) []PublishResult {
	results := make([]PublishResult, 0, len(postIDs))
	for _, id := range postIDs {
		result, err := o.PublishNow(ctx, id)
		if err != nil {
			slog.Warn("Bulk post item failed", "post_id", id, "outcome", result.Outcome, "error", err)
		}
		results = append(results, *result)
	}
	return results
}

// Analytics returns aggregator metrics for a post that actually reached a platform.
func (o *PublishingOrchestrator) Analytics(ctx context.Context, postID string) (*AnalyticsResult, error) {
	post, err := o.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	result := &AnalyticsResult{PostID: post.ID}
	if post.PlatformPostID == "" || strings.HasPrefix(post.PlatformPostID, simulatedIDPrefix) || o.Simulated() {
		result.Message = "Analytics not available"
		return result, nil
	}

	metrics, err := o.aggregator.GetAnalytics(ctx, post.PlatformPostID)
	if err != nil {
		return nil, collaboratorFailure("analytics", err)
	}
	result.Analytics = metrics
	return result, nil
}

// Accounts lists connected accounts, served from cache after the first successful fetch.
func (o *PublishingOrchestrator) Accounts(ctx context.Context) ([]SocialAccount, error) {
	if o.Simulated() {
		return []SocialAccount{}, nil
	}

	o.accountsMu.Lock()
	defer o.accountsMu.Unlock()

	if o.accountsLoaded {
		return o.accounts, nil
	}
	accounts, err := o.aggregator.ListAccounts(ctx)
	if err != nil {
		return nil, collaboratorFailure("account listing", err)
	}
	if accounts == nil {
		accounts = []SocialAccount{}
	}
	o.accounts = accounts
	o.accountsLoaded = true
	return accounts, nil
}

// InvalidateAccounts drops the cached account list.
func (o *PublishingOrchestrator) InvalidateAccounts() {
	o.accountsMu.Lock()
	o.accounts = nil
	o.accountsLoaded = false
	o.accountsMu.Unlock()
}

func (o *PublishingOrchestrator) resolveAccount(ctx context.Context, platform models.Platform) (*SocialAccount, error) {
	accounts, err := o.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		if account.Platform == platform && account.IsActive {
			return &account, nil
		}
	}
	return nil, fmt.Errorf("%w: connect a %s account before publishing", ErrNoAccountConnected, platform.DisplayName())
}

func (o *PublishingOrchestrator) loadPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := o.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", postID)
	}
	return post, nil
}

func (o *PublishingOrchestrator) publishStatus(post *models.Post) {
	o.events.Publish(post.UserID, ws.Event{
		Type:       ws.EventPostStatus,
		StrategyID: post.StrategyID,
		PostID:     post.ID,
		Data:       map[string]string{"status": string(post.Status), "platform": string(post.Platform)},
	})
}
