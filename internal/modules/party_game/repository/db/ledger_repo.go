package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) OpenBalance(ctx context.Context, playerID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.TokenBalance{PlayerID: playerID})
	if res.Error != nil {
		return false, fmt.Errorf("failed to open balance: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *LedgerRepository) GetBalance(ctx context.Context, playerID int64) (*domain.TokenBalance, error) {
	return r.getBalance(r.db.WithContext(ctx), playerID)
}

func (r *LedgerRepository) GetBalanceForUpdate(ctx context.Context, playerID int64) (*domain.TokenBalance, error) {
	return r.getBalance(r.db.WithContext(ctx).Scopes(forUpdate), playerID)
}

func (r *LedgerRepository) getBalance(db *gorm.DB, playerID int64) (*domain.TokenBalance, error) {
	var bal domain.TokenBalance
	if err := db.Where("player_id = ?", playerID).Take(&bal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlayerNotFound.With("no token balance for player", map[string]string{
				"player_id": strconv.FormatInt(playerID, 10),
			})
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &bal, nil
}

func (r *LedgerRepository) SaveBalance(ctx context.Context, bal *domain.TokenBalance) error {
	bal.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Model(&domain.TokenBalance{}).
		Where("player_id = ?", bal.PlayerID).
		Updates(map[string]interface{}{
			"balance":      bal.Balance,
			"total_earned": bal.TotalEarned,
			"total_spent":  bal.TotalSpent,
			"entries":      bal.Entries,
			"updated_at":   bal.UpdatedAt,
		}).Error; err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

func (r *LedgerRepository) AppendTransaction(ctx context.Context, tx *domain.TokenTransaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the player's log in posting order. Snowflake ids
// from different nodes can disagree with it under clock skew.
func (r *LedgerRepository) ListTransactions(ctx context.Context, playerID int64) ([]*domain.TokenTransaction, error) {
	var txs []*domain.TokenTransaction
	if err := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("entry_no asc").
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *LedgerRepository) ListBalances(ctx context.Context) ([]*domain.TokenBalance, error) {
	var balances []*domain.TokenBalance
	if err := r.db.WithContext(ctx).Order("player_id asc").Find(&balances).Error; err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	return balances, nil
}
