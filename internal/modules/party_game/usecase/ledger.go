package usecase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"gorm.io/datatypes"
)

// ledgerEntry describes one balance mutation.
type ledgerEntry struct {
	PlayerID int64
	GameID   string
	RoundID  *string
	Type     domain.TransactionType
	Amount   int64
	Metadata datatypes.JSONMap
}

// postEntry locks the player's balance row, applies the amount and appends
// the matching transaction. It must run inside a store transaction.
func postEntry(ctx context.Context, repos domain.Repositories, e ledgerEntry) (*domain.TokenTransaction, error) {
	bal, err := repos.Ledger().GetBalanceForUpdate(ctx, e.PlayerID)
	if err != nil {
		return nil, err
	}

	before := bal.Balance
	after := before + e.Amount
	if after < 0 {
		return nil, domain.ErrNegativeBalance.With("", map[string]string{
			"player_id": strconv.FormatInt(e.PlayerID, 10),
			"balance":   strconv.FormatInt(before, 10),
			"amount":    strconv.FormatInt(e.Amount, 10),
		})
	}

	bal.Balance = after
	if e.Amount > 0 {
		bal.TotalEarned += e.Amount
	} else {
		bal.TotalSpent -= e.Amount
	}
	bal.Entries++
	if err := repos.Ledger().SaveBalance(ctx, bal); err != nil {
		return nil, err
	}

	id, seq := domain.NewTransactionID()
	tx := &domain.TokenTransaction{
		ID:            id,
		Seq:           seq,
		PlayerID:      e.PlayerID,
		EntryNo:       bal.Entries,
		GameID:        e.GameID,
		RoundID:       e.RoundID,
		Type:          e.Type,
		Amount:        e.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Status:        domain.TxStatusCompleted,
		Metadata:      e.Metadata,
	}
	if err := repos.Ledger().AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// openAccount makes sure the player has a balance row. The first time a row
// is opened the starting grant is credited through the ledger.
func (uc *PartyGameUseCase) openAccount(ctx context.Context, repos domain.Repositories, playerID int64, gameID string) error {
	created, err := repos.Ledger().OpenBalance(ctx, playerID)
	if err != nil {
		return err
	}
	if !created || uc.settings.StartingBalance <= 0 {
		return nil
	}
	_, err = postEntry(ctx, repos, ledgerEntry{
		PlayerID: playerID,
		GameID:   gameID,
		Type:     domain.TxStartingGrant,
		Amount:   uc.settings.StartingBalance,
		Metadata: datatypes.JSONMap{"reason": "welcome"},
	})
	return err
}

func (uc *PartyGameUseCase) GetBalance(ctx context.Context, playerID int64) (*domain.TokenBalance, error) {
	return uc.store.Ledger().GetBalance(ctx, playerID)
}

func (uc *PartyGameUseCase) ListTransactions(ctx context.Context, playerID int64) ([]*domain.TokenTransaction, error) {
	return uc.store.Ledger().ListTransactions(ctx, playerID)
}

// ReplayBalance rebuilds a balance from zero by chaining the player's log.
func ReplayBalance(bal *domain.TokenBalance, txs []*domain.TokenTransaction) domain.LedgerAudit {
	audit := domain.LedgerAudit{
		PlayerID:     bal.PlayerID,
		Stored:       bal.Balance,
		Transactions: len(txs),
	}
	var running int64
	for _, tx := range txs {
		if tx.BalanceBefore != running || tx.BalanceAfter != tx.BalanceBefore+tx.Amount {
			audit.BrokenChain++
		}
		running += tx.Amount
	}
	audit.Replayed = running
	return audit
}

// AuditLedger replays every player's log against the stored balance.
func (uc *PartyGameUseCase) AuditLedger(ctx context.Context) ([]domain.LedgerAudit, error) {
	return Audit(ctx, uc.store.Ledger())
}

// Audit runs ReplayBalance for every account in ledger.
func Audit(ctx context.Context, ledger domain.LedgerRepository) ([]domain.LedgerAudit, error) {
	balances, err := ledger.ListBalances(ctx)
	if err != nil {
		return nil, err
	}

	audits := make([]domain.LedgerAudit, 0, len(balances))
	for _, bal := range balances {
		txs, err := ledger.ListTransactions(ctx, bal.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("failed to replay player %d: %w", bal.PlayerID, err)
		}
		audits = append(audits, ReplayBalance(bal, txs))
	}
	return audits, nil
}
