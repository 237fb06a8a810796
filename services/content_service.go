package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/krshsl/brandcast/models"
	"github.com/krshsl/brandcast/repository"
)

// ContentService covers reading and hand-editing posts.
type ContentService struct {
	posts  PostStore
	locker Locker
}

// NewContentService shares locker with the publishing orchestrator so edits and
// publish attempts on the same post never interleave.
func NewContentService(posts PostStore, locker Locker) *ContentService {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &ContentService{posts: posts, locker: locker}
}

// PostPatch holds operator edits; nil fields are left alone.
type PostPatch struct {
	Content       *string    `json:"content,omitempty"`
	Tags          *[]string  `json:"tags,omitempty"`
	MediaURL      *string    `json:"media_url,omitempty"`
	ContentPillar *string    `json:"content_pillar,omitempty"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
}

func (s *ContentService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", id)
	}
	return post, nil
}

func (s *ContentService) List(ctx context.Context, filter repository.PostFilter) ([]models.Post, error) {
	return s.posts.ListPosts(ctx, filter)
}

// Update edits a post that has not been published yet.
func (s *ContentService) Update(ctx context.Context, id string, patch PostPatch) (*models.Post, error) {
	unlock, err := s.locker.Lock(ctx, postLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostPosted {
		return nil, fmt.Errorf("%w: posted content cannot be edited", ErrInvalidState)
	}

	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if content == "" {
			return nil, fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
		}
		post.Content = content
	}
	if patch.Tags != nil {
		post.Tags = *patch.Tags
	}
	if patch.MediaURL != nil {
		post.MediaURL = strings.TrimSpace(*patch.MediaURL)
	}
	if patch.ContentPillar != nil {
		post.ContentPillar = *patch.ContentPillar
	}
	if patch.ScheduledTime != nil {
		scheduled := patch.ScheduledTime.UTC()
		post.ScheduledTime = &scheduled
	}

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return post, nil
}

func (s *ContentService) Delete(ctx context.Context, id string) error {
	unlock, err := s.locker.Lock(ctx, postLockKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.posts.DeletePost(ctx, id)
}
