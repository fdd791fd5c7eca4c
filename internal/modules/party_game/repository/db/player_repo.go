package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"gorm.io/gorm"
)

type PlayerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) Add(ctx context.Context, player *domain.GamePlayer) error {
	if err := r.db.WithContext(ctx).Create(player).Error; err != nil {
		return fmt.Errorf("failed to add player: %w", err)
	}
	return nil
}

func (r *PlayerRepository) Get(ctx context.Context, gameID string, playerID int64) (*domain.GamePlayer, error) {
	var player domain.GamePlayer
	err := r.db.WithContext(ctx).
		Where("game_id = ? AND player_id = ?", gameID, playerID).
		Take(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlayerNotInGame.With("", map[string]string{
				"game_id":   gameID,
				"player_id": strconv.FormatInt(playerID, 10),
			})
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &player, nil
}

func (r *PlayerRepository) List(ctx context.Context, gameID string) ([]*domain.GamePlayer, error) {
	var players []*domain.GamePlayer
	if err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("id asc").
		Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

func (r *PlayerRepository) CountContestants(ctx context.Context, gameID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.GamePlayer{}).
		Where("game_id = ? AND is_spectator = ?", gameID, false).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return n, nil
}

func (r *PlayerRepository) AddScore(ctx context.Context, gameID string, playerID int64, delta int64) error {
	res := r.db.WithContext(ctx).Model(&domain.GamePlayer{}).
		Where("game_id = ? AND player_id = ?", gameID, playerID).
		UpdateColumn("score", gorm.Expr("score + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to update score: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrPlayerNotInGame
	}
	return nil
}

func (r *PlayerRepository) Update(ctx context.Context, player *domain.GamePlayer) error {
	if err := r.db.WithContext(ctx).Model(&domain.GamePlayer{}).
		Where("id = ?", player.ID).
		Updates(map[string]interface{}{
			"score":           player.Score,
			"correct_answers": player.CorrectAnswers,
			"total_answers":   player.TotalAnswers,
		}).Error; err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	return nil
}

func (r *PlayerRepository) ResetScores(ctx context.Context, gameID string) error {
	if err := r.db.WithContext(ctx).Model(&domain.GamePlayer{}).
		Where("game_id = ?", gameID).
		Updates(map[string]interface{}{
			"score":           0,
			"correct_answers": 0,
			"total_answers":   0,
		}).Error; err != nil {
		return fmt.Errorf("failed to reset scores: %w", err)
	}
	return nil
}
