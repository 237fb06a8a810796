package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/brandcast/models"
)

// MemoryRepository keeps every entity in process memory with the same semantics as
// GORMRepository. It backs runs without DATABASE_URL.
type MemoryRepository struct {
	mu         sync.RWMutex
	users      map[string]models.User
	interviews map[string]models.Interview
	turns      map[string][]models.TranscriptTurn
	strategies map[string]models.Strategy
	posts      map[string]models.Post
	now        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[string]models.User),
		interviews: make(map[string]models.Interview),
		turns:      make(map[string][]models.TranscriptTurn),
		strategies: make(map[string]models.Strategy),
		posts:      make(map[string]models.Post),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryRepository) EnsureUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[user.ID]; ok {
		*user = existing
		return nil
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = m.now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *MemoryRepository) CreateInterview(ctx context.Context, interview *models.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if interview.ID == "" {
		interview.ID = uuid.New().String()
	}
	if interview.CreatedAt.IsZero() {
		interview.CreatedAt = m.now()
	}
	interview.UpdatedAt = interview.CreatedAt
	stored := *interview
	stored.Turns = nil
	m.interviews[interview.ID] = stored
	return nil
}

func (m *MemoryRepository) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	interview, ok := m.interviews[id]
	if !ok {
		return nil, nil
	}
	return &interview, nil
}

func (m *MemoryRepository) ListInterviews(ctx context.Context, userID string) ([]models.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var interviews []models.Interview
	for _, interview := range m.interviews {
		if interview.UserID == userID {
			interviews = append(interviews, interview)
		}
	}
	sort.SliceStable(interviews, func(i, j int) bool {
		return interviews[i].CreatedAt.After(interviews[j].CreatedAt)
	})
	return interviews, nil
}

func (m *MemoryRepository) UpdateInterview(ctx context.Context, interview *models.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.interviews[interview.ID]; !ok {
		return fmt.Errorf("interview %s: %w", interview.ID, ErrNotFound)
	}
	interview.UpdatedAt = m.now()
	stored := *interview
	stored.Turns = nil
	m.interviews[interview.ID] = stored
	return nil
}

func (m *MemoryRepository) DeleteInterview(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteStrategiesForInterview(id)
	delete(m.turns, id)
	delete(m.interviews, id)
	return nil
}

func (m *MemoryRepository) AppendTurn(ctx context.Context, interviewID string, speaker models.Speaker, content string) (*models.TranscriptTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.interviews[interviewID]; !ok {
		return nil, fmt.Errorf("interview %s: %w", interviewID, ErrNotFound)
	}
	existing := models.Transcript(m.turns[interviewID])
	turn := models.TranscriptTurn{
		ID:          uuid.New().String(),
		InterviewID: interviewID,
		TurnOrder:   existing.NextTurnOrder(),
		Speaker:     speaker,
		Content:     content,
		CreatedAt:   m.now(),
	}
	m.turns[interviewID] = append(m.turns[interviewID], turn)
	return &turn, nil
}

func (m *MemoryRepository) GetTranscript(ctx context.Context, interviewID string) (models.Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := make(models.Transcript, len(m.turns[interviewID]))
	copy(turns, m.turns[interviewID])
	return turns, nil
}

func (m *MemoryRepository) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	strategy, ok := m.strategies[id]
	if !ok {
		return nil, nil
	}
	return &strategy, nil
}

func (m *MemoryRepository) GetStrategyByInterview(ctx context.Context, interviewID string) (*models.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, strategy := range m.strategies {
		if strategy.InterviewID == interviewID {
			return &strategy, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) GetLatestStrategy(ctx context.Context, userID string) (*models.Strategy, error) {
	strategies, _ := m.ListStrategies(ctx, userID)
	if len(strategies) == 0 {
		return nil, nil
	}
	return &strategies[0], nil
}

func (m *MemoryRepository) ListStrategies(ctx context.Context, userID string) ([]models.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var strategies []models.Strategy
	for _, strategy := range m.strategies {
		if strategy.UserID == userID {
			strategies = append(strategies, strategy)
		}
	}
	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].CreatedAt.After(strategies[j].CreatedAt)
	})
	return strategies, nil
}

func (m *MemoryRepository) ReplaceStrategy(ctx context.Context, strategy *models.Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteStrategiesForInterview(strategy.InterviewID)
	if strategy.ID == "" {
		strategy.ID = uuid.New().String()
	}
	strategy.CreatedAt = m.now()
	strategy.UpdatedAt = strategy.CreatedAt
	stored := *strategy
	stored.Posts = nil
	m.strategies[strategy.ID] = stored
	return nil
}

func (m *MemoryRepository) UpdateStrategy(ctx context.Context, strategy *models.Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.strategies[strategy.ID]; !ok {
		return fmt.Errorf("strategy %s: %w", strategy.ID, ErrNotFound)
	}
	strategy.UpdatedAt = m.now()
	stored := *strategy
	stored.Posts = nil
	m.strategies[strategy.ID] = stored
	return nil
}

func (m *MemoryRepository) deleteStrategiesForInterview(interviewID string) {
	for id, strategy := range m.strategies {
		if strategy.InterviewID != interviewID {
			continue
		}
		for postID, post := range m.posts {
			if post.StrategyID == id {
				delete(m.posts, postID)
			}
		}
		delete(m.strategies, id)
	}
}

func (m *MemoryRepository) CreatePosts(ctx context.Context, posts []models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, post := range posts {
		if _, ok := m.strategies[post.StrategyID]; !ok {
			return fmt.Errorf("strategy %s: %w", post.StrategyID, ErrNotFound)
		}
	}
	now := m.now()
	for i := range posts {
		if posts[i].ID == "" {
			posts[i].ID = uuid.New().String()
		}
		posts[i].CreatedAt = now
		posts[i].UpdatedAt = now
		m.posts[posts[i].ID] = clonePost(posts[i])
	}
	return nil
}

func (m *MemoryRepository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	post, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	post = clonePost(post)
	return &post, nil
}

func (m *MemoryRepository) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var posts []models.Post
	for _, post := range m.posts {
		if filter.UserID != "" && post.UserID != filter.UserID {
			continue
		}
		if filter.StrategyID != "" && post.StrategyID != filter.StrategyID {
			continue
		}
		if filter.Status != "" && post.Status != filter.Status {
			continue
		}
		posts = append(posts, clonePost(post))
	}

	if filter.StrategyID != "" {
		sort.SliceStable(posts, func(i, j int) bool {
			return suggestedBefore(posts[i], posts[j])
		})
	} else {
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		})
	}
	return posts, nil
}

func (m *MemoryRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[post.ID]; !ok {
		return fmt.Errorf("post %s: %w", post.ID, ErrNotFound)
	}
	post.UpdatedAt = m.now()
	m.posts[post.ID] = clonePost(*post)
	return nil
}

func (m *MemoryRepository) DeletePost(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.posts, id)
	return nil
}

// suggestedBefore orders by suggested time with unset times last, like postgres ASC.
func suggestedBefore(a, b models.Post) bool {
	switch {
	case a.SuggestedTime == nil:
		return false
	case b.SuggestedTime == nil:
		return true
	}
	return a.SuggestedTime.Before(*b.SuggestedTime)
}

func clonePost(post models.Post) models.Post {
	if post.Tags != nil {
		post.Tags = append([]string(nil), post.Tags...)
	}
	return post
}
