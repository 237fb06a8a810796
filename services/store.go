package services

import (
	"context"

	"github.com/krshsl/brandcast/models"
	"github.com/krshsl/brandcast/repository"
)

// Getters return nil, nil when the record does not exist.

type InterviewStore interface {
	CreateInterview(ctx context.Context, interview *models.Interview) error
	GetInterview(ctx context.Context, id string) (*models.Interview, error)
	ListInterviews(ctx context.Context, userID string) ([]models.Interview, error)
	UpdateInterview(ctx context.Context, interview *models.Interview) error
	DeleteInterview(ctx context.Context, id string) error
	AppendTurn(ctx context.Context, interviewID string, speaker models.Speaker, content string) (*models.TranscriptTurn, error)
	GetTranscript(ctx context.Context, interviewID string) (models.Transcript, error)
}

type StrategyStore interface {
	GetStrategy(ctx context.Context, id string) (*models.Strategy, error)
	GetStrategyByInterview(ctx context.Context, interviewID string) (*models.Strategy, error)
	GetLatestStrategy(ctx context.Context, userID string) (*models.Strategy, error)
	ListStrategies(ctx context.Context, userID string) ([]models.Strategy, error)
	ReplaceStrategy(ctx context.Context, strategy *models.Strategy) error
	UpdateStrategy(ctx context.Context, strategy *models.Strategy) error
}

type PostStore interface {
	CreatePosts(ctx context.Context, posts []models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, filter repository.PostFilter) ([]models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id string) error
}

type UserStore interface {
	EnsureUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store is everything the HTTP server needs from persistence.
type Store interface {
	InterviewStore
	StrategyStore
	PostStore
	UserStore
	Ping(ctx context.Context) error
}

var (
	_ Store = (*repository.GORMRepository)(nil)
	_ Store = (*repository.MemoryRepository)(nil)
)
