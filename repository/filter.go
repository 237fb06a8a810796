package repository

import "github.com/krshsl/brandcast/models"

// PostFilter narrows post listings. Empty fields are ignored.
type PostFilter struct {
	UserID     string
	StrategyID string
	Status     models.PostStatus
}
