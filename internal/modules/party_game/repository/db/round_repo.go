package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RoundRepository struct {
	db *gorm.DB
}

func NewRoundRepository(db *gorm.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

func (r *RoundRepository) Create(ctx context.Context, round *domain.Round) error {
	if err := r.db.WithContext(ctx).Create(round).Error; err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

func (r *RoundRepository) Get(ctx context.Context, id string) (*domain.Round, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *RoundRepository) GetForUpdate(ctx context.Context, id string) (*domain.Round, error) {
	return r.get(r.db.WithContext(ctx).Scopes(forUpdate), id)
}

func (r *RoundRepository) get(db *gorm.DB, id string) (*domain.Round, error) {
	var round domain.Round
	if err := db.Where("id = ?", id).Take(&round).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoundNotFound.With("", map[string]string{"round_id": id})
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return &round, nil
}

func (r *RoundRepository) Update(ctx context.Context, round *domain.Round) error {
	round.UpdatedAt = time.Now()
	updates := map[string]interface{}{
		"status":     round.Status,
		"consumed":   round.Consumed,
		"round_data": round.RoundData,
		"updated_at": round.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Model(&domain.Round{}).Where("id = ?", round.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update round: %w", err)
	}
	return nil
}

func (r *RoundRepository) ListByGame(ctx context.Context, gameID string) ([]*domain.Round, error) {
	var rounds []*domain.Round
	if err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("round_number asc").
		Find(&rounds).Error; err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}

func (r *RoundRepository) FindActive(ctx context.Context, gameID string) (*domain.Round, error) {
	var rounds []*domain.Round
	if err := r.db.WithContext(ctx).
		Scopes(played).
		Where("game_id = ? AND status = ?", gameID, domain.RoundStatusActive).
		Order("round_number asc").
		Limit(1).
		Find(&rounds).Error; err != nil {
		return nil, fmt.Errorf("failed to find active round: %w", err)
	}
	if len(rounds) == 0 {
		return nil, nil
	}
	return rounds[0], nil
}

// NextPending is the only query that picks the next question. Both the draw
// and the state machine go through it so the chill filter cannot drift.
func (r *RoundRepository) NextPending(ctx context.Context, q domain.PendingQuery) (*domain.Round, error) {
	db := r.db.WithContext(ctx).
		Scopes(seeded, chillFilter(q.Chill)).
		Where("game_id = ? AND status = ? AND consumed = ?", q.GameID, domain.RoundStatusPending, false)
	if q.SkipLocked {
		db = db.Scopes(forUpdateSkipLocked)
	}

	var rounds []*domain.Round
	if err := db.Order("round_number asc").Limit(1).Find(&rounds).Error; err != nil {
		return nil, fmt.Errorf("failed to select next pending round: %w", err)
	}
	if len(rounds) == 0 {
		return nil, nil
	}
	return rounds[0], nil
}

// Claim is a compare-and-swap on status so a source is consumed once even
// where SKIP LOCKED is unavailable.
func (r *RoundRepository) Claim(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Round{}).
		Where("id = ? AND status = ? AND consumed = ?", id, domain.RoundStatusPending, false).
		Updates(map[string]interface{}{
			"status":     domain.RoundStatusFinished,
			"consumed":   true,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim round: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *RoundRepository) Counts(ctx context.Context, gameID string) (domain.RoundCounts, error) {
	var counts domain.RoundCounts
	db := r.db.WithContext(ctx)
	used := []domain.RoundStatus{domain.RoundStatusActive, domain.RoundStatusFinished}

	if err := db.Model(&domain.Round{}).Scopes(seeded).
		Where("game_id = ?", gameID).
		Count(&counts.SeededTotal).Error; err != nil {
		return counts, fmt.Errorf("failed to count deck rounds: %w", err)
	}
	if err := db.Model(&domain.Round{}).Scopes(seeded).
		Where("game_id = ? AND status IN ?", gameID, used).
		Count(&counts.SeededUsed).Error; err != nil {
		return counts, fmt.Errorf("failed to count used deck rounds: %w", err)
	}
	if err := db.Model(&domain.Round{}).Scopes(played).
		Where("game_id = ? AND status = ?", gameID, domain.RoundStatusActive).
		Count(&counts.Active).Error; err != nil {
		return counts, fmt.Errorf("failed to count active rounds: %w", err)
	}
	if err := db.Model(&domain.Round{}).Scopes(played).
		Where("game_id = ? AND status = ?", gameID, domain.RoundStatusFinished).
		Count(&counts.FinishedPlayed).Error; err != nil {
		return counts, fmt.Errorf("failed to count finished rounds: %w", err)
	}
	return counts, nil
}

func (r *RoundRepository) PendingByAuthor(ctx context.Context, gameID string) (map[int64]int64, error) {
	var rows []struct {
		AuthorID int64
		Unused   int64
	}
	if err := r.db.WithContext(ctx).Model(&domain.Round{}).
		Scopes(seeded).
		Select("author_id, COUNT(*) AS unused").
		Where("game_id = ? AND status = ?", gameID, domain.RoundStatusPending).
		Group("author_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count unused rounds: %w", err)
	}

	out := make(map[int64]int64, len(rows))
	for _, row := range rows {
		out[row.AuthorID] = row.Unused
	}
	return out, nil
}

func (r *RoundRepository) CancelPending(ctx context.Context, gameID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Round{}).
		Where("game_id = ? AND status = ?", gameID, domain.RoundStatusPending).
		Updates(map[string]interface{}{
			"status":     domain.RoundStatusCancelled,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to cancel pending rounds: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *RoundRepository) IncrementFlags(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&domain.Round{}).
		Where("id = ?", id).
		UpdateColumn("flag_count", gorm.Expr("flag_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to flag round: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRoundNotFound.With("", map[string]string{"round_id": id})
	}
	return nil
}

func (r *RoundRepository) ReturnToDeck(ctx context.Context, gameID string) (int64, error) {
	db := r.db.WithContext(ctx)
	now := time.Now()
	empty := datatypes.NewJSONType(domain.RoundState{})

	// Drawn copies leave the game.
	if err := db.Model(&domain.Round{}).
		Where("game_id = ? AND source_round_id IS NOT NULL AND status <> ?", gameID, domain.RoundStatusCancelled).
		Updates(map[string]interface{}{
			"status":     domain.RoundStatusCancelled,
			"updated_at": now,
		}).Error; err != nil {
		return 0, fmt.Errorf("failed to cancel drawn rounds: %w", err)
	}

	res := db.Model(&domain.Round{}).Scopes(seeded).
		Where("game_id = ? AND status <> ?", gameID, domain.RoundStatusPending).
		Updates(map[string]interface{}{
			"status":     domain.RoundStatusPending,
			"consumed":   false,
			"round_data": empty,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to return rounds to deck: %w", res.Error)
	}
	return res.RowsAffected, nil
}
