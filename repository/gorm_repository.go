package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/krshsl/brandcast/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.Interview{},
		&models.TranscriptTurn{},
		&models.Strategy{},
		&models.Post{},
	)
}

// Ping checks the underlying connection
func (r *GORMRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, nil
	}
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

// Interview operations
func (r *GORMRepository) CreateInterview(ctx context.Context, interview *models.Interview) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(interview).Error; err != nil {
		slog.Error("Failed to create interview", "error", err, "user_id", interview.UserID)
		return err
	}
	slog.Info("Interview created", "interview_id", interview.ID, "user_id", interview.UserID)
	return nil
}

func (r *GORMRepository) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	if !validID(id) {
		return nil, nil
	}
	var interview models.Interview
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&interview).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get interview", "error", err, "interview_id", id)
		return nil, err
	}
	return &interview, nil
}

func (r *GORMRepository) ListInterviews(ctx context.Context, userID string) ([]models.Interview, error) {
	var interviews []models.Interview
	if !validID(userID) {
		return interviews, nil
	}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&interviews).Error
	if err != nil {
		slog.Error("Failed to list interviews", "error", err, "user_id", userID)
		return nil, err
	}
	return interviews, nil
}

func (r *GORMRepository) UpdateInterview(ctx context.Context, interview *models.Interview) error {
	if err := r.updateRow(ctx, interview, interview.ID); err != nil {
		slog.Error("Failed to update interview", "error", err, "interview_id", interview.ID)
		return err
	}
	return nil
}

// updateRow writes every column of an existing row. Unlike Save it never inserts,
// so a row deleted concurrently stays deleted and the caller gets ErrNotFound.
func (r *GORMRepository) updateRow(ctx context.Context, row any, id string) error {
	if !validID(id) {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	result := r.db.WithContext(ctx).Model(row).Omit(clause.Associations, "created_at").Select("*").Updates(row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteInterview removes the interview with its transcript, strategy and posts in one transaction
func (r *GORMRepository) DeleteInterview(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteStrategiesForInterview(tx, id); err != nil {
			return err
		}
		if err := tx.Where("interview_id = ?", id).Delete(&models.TranscriptTurn{}).Error; err != nil {
			return fmt.Errorf("failed to delete transcript: %w", err)
		}
		return tx.Where("id = ?", id).Delete(&models.Interview{}).Error
	})
	if err != nil {
		slog.Error("Failed to delete interview", "error", err, "interview_id", id)
		return err
	}
	slog.Info("Interview deleted", "interview_id", id)
	return nil
}

// Strategy operations
func (r *GORMRepository) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	if !validID(id) {
		return nil, nil
	}
	return r.firstStrategy(ctx, "id = ?", id)
}

func (r *GORMRepository) GetStrategyByInterview(ctx context.Context, interviewID string) (*models.Strategy, error) {
	if !validID(interviewID) {
		return nil, nil
	}
	return r.firstStrategy(ctx, "interview_id = ?", interviewID)
}

func (r *GORMRepository) GetLatestStrategy(ctx context.Context, userID string) (*models.Strategy, error) {
	if !validID(userID) {
		return nil, nil
	}
	var strategy models.Strategy
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&strategy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get latest strategy", "error", err, "user_id", userID)
		return nil, err
	}
	return &strategy, nil
}

func (r *GORMRepository) firstStrategy(ctx context.Context, query string, arg string) (*models.Strategy, error) {
	var strategy models.Strategy
	if err := r.db.WithContext(ctx).Where(query, arg).First(&strategy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get strategy", "error", err, "lookup", arg)
		return nil, err
	}
	return &strategy, nil
}

func (r *GORMRepository) ListStrategies(ctx context.Context, userID string) ([]models.Strategy, error) {
	var strategies []models.Strategy
	if !validID(userID) {
		return strategies, nil
	}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&strategies).Error
	if err != nil {
		slog.Error("Failed to list strategies", "error", err, "user_id", userID)
		return nil, err
	}
	return strategies, nil
}

// ReplaceStrategy deletes any strategy already attached to the interview, with its posts,
// and inserts strategy, all in one transaction
func (r *GORMRepository) ReplaceStrategy(ctx context.Context, strategy *models.Strategy) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteStrategiesForInterview(tx, strategy.InterviewID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(strategy).Error
	})
	if err != nil {
		slog.Error("Failed to replace strategy", "error", err, "interview_id", strategy.InterviewID)
		return err
	}
	slog.Info("Strategy stored", "strategy_id", strategy.ID, "interview_id", strategy.InterviewID)
	return nil
}

func (r *GORMRepository) UpdateStrategy(ctx context.Context, strategy *models.Strategy) error {
	if err := r.updateRow(ctx, strategy, strategy.ID); err != nil {
		slog.Error("Failed to update strategy", "error", err, "strategy_id", strategy.ID)
		return err
	}
	return nil
}

func deleteStrategiesForInterview(tx *gorm.DB, interviewID string) error {
	var priorIDs []string
	if err := tx.Model(&models.Strategy{}).Where("interview_id = ?", interviewID).Pluck("id", &priorIDs).Error; err != nil {
		return fmt.Errorf("failed to look up prior strategies: %w", err)
	}
	if len(priorIDs) == 0 {
		return nil
	}
	if err := tx.Where("strategy_id IN ?", priorIDs).Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("failed to delete prior posts: %w", err)
	}
	if err := tx.Where("id IN ?", priorIDs).Delete(&models.Strategy{}).Error; err != nil {
		return fmt.Errorf("failed to delete prior strategy: %w", err)
	}
	slog.Info("Prior strategy discarded", "interview_id", interviewID, "count", len(priorIDs))
	return nil
}

// Post operations

// CreatePosts inserts posts for one strategy, failing with ErrNotFound if the strategy was replaced meanwhile
func (r *GORMRepository) CreatePosts(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	strategyID := posts[0].StrategyID
	if !validID(strategyID) {
		return fmt.Errorf("strategy %s: %w", strategyID, ErrNotFound)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Strategy{}).Where("id = ?", strategyID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up strategy: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("strategy %s: %w", strategyID, ErrNotFound)
		}
		return tx.Create(&posts).Error
	})
	if err != nil {
		slog.Error("Failed to create posts", "error", err, "count", len(posts), "strategy_id", strategyID)
		return err
	}
	slog.Info("Posts created", "count", len(posts), "strategy_id", posts[0].StrategyID)
	return nil
}

func (r *GORMRepository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if !validID(id) {
		return nil, nil
	}
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get post", "error", err, "post_id", id)
		return nil, err
	}
	return &post, nil
}

func (r *GORMRepository) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	var posts []models.Post
	if (filter.UserID != "" && !validID(filter.UserID)) || (filter.StrategyID != "" && !validID(filter.StrategyID)) {
		return posts, nil
	}
	query := r.db.WithContext(ctx)
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.StrategyID != "" {
		query = query.Where("strategy_id = ?", filter.StrategyID).Order("suggested_time ASC")
	} else {
		query = query.Order("created_at DESC")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Find(&posts).Error; err != nil {
		slog.Error("Failed to list posts", "error", err, "user_id", filter.UserID, "strategy_id", filter.StrategyID)
		return nil, err
	}
	return posts, nil
}

func (r *GORMRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	if err := r.updateRow(ctx, post, post.ID); err != nil {
		slog.Error("Failed to update post", "error", err, "post_id", post.ID)
		return err
	}
	return nil
}

func (r *GORMRepository) DeletePost(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{}).Error; err != nil {
		slog.Error("Failed to delete post", "error", err, "post_id", id)
		return err
	}
	slog.Info("Post deleted", "post_id", id)
	return nil
}

// EnsureUser creates the user unless one with the same ID already exists
func (r *GORMRepository) EnsureUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Where("id = ?", user.ID).FirstOrCreate(user).Error; err != nil {
		slog.Error("Failed to ensure user", "error", err, "user_id", user.ID)
		return err
	}
	return nil
}
