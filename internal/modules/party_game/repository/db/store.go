package db

import (
	"context"
	"fmt"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"gorm.io/gorm"
)

// Store binds the party game repositories to a gorm handle. Inside
// Transaction the handle is the transaction itself, so every repository a
// callback touches shares the same locks.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Games() domain.GameRepository {
	return NewGameRepository(s.db)
}

func (s *Store) Rounds() domain.RoundRepository {
	return NewRoundRepository(s.db)
}

func (s *Store) Players() domain.PlayerRepository {
	return NewPlayerRepository(s.db)
}

func (s *Store) Ledger() domain.LedgerRepository {
	return NewLedgerRepository(s.db)
}

func (s *Store) Transaction(ctx context.Context, fn func(repos domain.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&domain.Game{},
		&domain.Round{},
		&domain.GamePlayer{},
		&domain.TokenBalance{},
		&domain.TokenTransaction{},
	); err != nil {
		return fmt.Errorf("failed to migrate party game schema: %w", err)
	}
	return nil
}
