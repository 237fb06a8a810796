package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/brandcast/models"
	"gorm.io/gorm"
)

// AppendTurn appends one turn at the end of the interview's transcript.
// Turn order is computed inside the transaction so concurrent appends never share a slot.
func (r *GORMRepository) AppendTurn(ctx context.Context, interviewID string, speaker models.Speaker, content string) (*models.TranscriptTurn, error) {
	if !validID(interviewID) {
		return nil, fmt.Errorf("interview %s: %w", interviewID, ErrNotFound)
	}
	turn := &models.TranscriptTurn{
		ID:          uuid.New().String(),
		InterviewID: interviewID,
		Speaker:     speaker,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int
		if err := tx.Model(&models.TranscriptTurn{}).
			Where("interview_id = ?", interviewID).
			Select("COALESCE(MAX(turn_order) + 1, 0)").
			Scan(&next).Error; err != nil {
			return fmt.Errorf("failed to compute turn order: %w", err)
		}
		turn.TurnOrder = next
		return tx.Create(turn).Error
	})
	if err != nil {
		slog.Error("Failed to append transcript turn", "error", err, "interview_id", interviewID, "speaker", speaker)
		return nil, fmt.Errorf("failed to append transcript turn: %w", err)
	}

	slog.Info("Transcript turn appended", "interview_id", interviewID, "speaker", speaker, "turn_order", turn.TurnOrder)
	return turn, nil
}

// GetTranscript returns the interview's turns in append order
func (r *GORMRepository) GetTranscript(ctx context.Context, interviewID string) (models.Transcript, error) {
	var turns []models.TranscriptTurn
	if !validID(interviewID) {
		return models.Transcript(turns), nil
	}
	if err := r.db.WithContext(ctx).
		Where("interview_id = ?", interviewID).
		Order("turn_order ASC").
		Find(&turns).Error; err != nil {
		slog.Error("Failed to get transcript", "error", err, "interview_id", interviewID)
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return models.Transcript(turns), nil
}
