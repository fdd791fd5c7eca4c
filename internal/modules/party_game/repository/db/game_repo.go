package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"gorm.io/gorm"
)

type GameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) Create(ctx context.Context, game *domain.Game) error {
	if err := r.db.WithContext(ctx).Create(game).Error; err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *GameRepository) Get(ctx context.Context, id string) (*domain.Game, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *GameRepository) GetForUpdate(ctx context.Context, id string) (*domain.Game, error) {
	return r.get(r.db.WithContext(ctx).Scopes(forUpdate), id)
}

func (r *GameRepository) get(db *gorm.DB, id string) (*domain.Game, error) {
	var game domain.Game
	if err := db.Where("id = ?", id).Take(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGameNotFound.With("", map[string]string{"game_id": id})
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &game, nil
}

func (r *GameRepository) Update(ctx context.Context, game *domain.Game) error {
	game.UpdatedAt = time.Now()
	updates := map[string]interface{}{
		"status":          game.Status,
		"rounds_per_game": game.RoundsPerGame,
		"time_per_round":  game.TimePerRound,
		"chill_mode":      game.ChillMode,
		"metadata":        game.Metadata,
		"updated_at":      game.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Model(&domain.Game{}).Where("id = ?", game.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	return nil
}

func (r *GameRepository) NextRoundNumber(ctx context.Context, id string) (int, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&domain.Game{}).Where("id = ?", id).
		UpdateColumn("round_seq", gorm.Expr("round_seq + ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to bump round sequence: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrGameNotFound.With("", map[string]string{"game_id": id})
	}

	var seq int
	if err := db.Model(&domain.Game{}).Where("id = ?", id).Select("round_seq").Scan(&seq).Error; err != nil {
		return 0, fmt.Errorf("failed to read round sequence: %w", err)
	}
	return seq, nil
}
