package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TxStartingGrant TransactionType = "starting_grant"
	TxWager         TransactionType = "wager"
	TxFinaleGrant   TransactionType = "finale_grant"
)

const TxStatusCompleted = "completed"

// TokenBalance is the current token snapshot for a player.
type TokenBalance struct {
	PlayerID    int64     `json:"playerId" gorm:"primaryKey;autoIncrement:false"`
	Balance     int64     `json:"balance" gorm:"column:balance;not null;default:0"`
	TotalEarned int64     `json:"totalEarned" gorm:"column:total_earned;not null;default:0"`
	TotalSpent  int64     `json:"totalSpent" gorm:"column:total_spent;not null;default:0"`
	// Entries counts the transactions posted so far; the next one gets
	// Entries+1.
	Entries     int64     `json:"-" gorm:"column:entries;not null;default:0"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

func (TokenBalance) TableName() string {
	return "token_balances"
}

// TokenTransaction is an append-only ledger entry.
type TokenTransaction struct {
	ID            string            `json:"id" gorm:"primaryKey;type:varchar(32)"`
	Seq           int64             `json:"-" gorm:"column:seq;not null;index"`
	PlayerID      int64             `json:"playerId" gorm:"column:player_id;not null;index;uniqueIndex:idx_tx_player_entry,priority:1"`
	// EntryNo orders a player's log. It is taken from the balance row under
	// its lock, so it never depends on host clocks.
	EntryNo       int64             `json:"entryNo" gorm:"column:entry_no;not null;uniqueIndex:idx_tx_player_entry,priority:2"`
	GameID        string            `json:"gameId" gorm:"column:game_id;type:varchar(36);index"`
	RoundID       *string           `json:"roundId,omitempty" gorm:"column:round_id;type:varchar(36)"`
	Type          TransactionType   `json:"type" gorm:"column:type;type:varchar(32);not null"`
	Amount        int64             `json:"amount" gorm:"column:amount;not null"`
	BalanceBefore int64             `json:"balanceBefore" gorm:"column:balance_before;not null"`
	BalanceAfter  int64             `json:"balanceAfter" gorm:"column:balance_after;not null"`
	Status        string            `json:"status" gorm:"column:status;type:varchar(16);not null"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	CreatedAt     time.Time         `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
}

func (TokenTransaction) TableName() string {
	return "token_transactions"
}

var (
	nodeMu sync.Mutex
	node   *snowflake.Node
)

// SetSnowflakeNode selects the node id used for ledger ids. Call it at
// startup; ids outside the snowflake node range are rejected here rather
// than on the first ledger write.
func SetSnowflakeNode(id int64) error {
	n, err := snowflake.NewNode(id)
	if err != nil {
		return fmt.Errorf("ledger snowflake node %d: %w", id, err)
	}
	nodeMu.Lock()
	node = n
	nodeMu.Unlock()
	return nil
}

func ledgerNode() *snowflake.Node {
	nodeMu.Lock()
	defer nodeMu.Unlock()
	if node == nil {
		// node 1 is always in range
		node, _ = snowflake.NewNode(1)
	}
	return node
}

// NewTransactionID returns a time-ordered ledger id and its numeric form.
func NewTransactionID() (string, int64) {
	id := ledgerNode().Generate()
	return id.String(), id.Int64()
}

// LedgerAudit is the replay check of one player's transaction log.
type LedgerAudit struct {
	PlayerID     int64 `json:"playerId"`
	Stored       int64 `json:"stored"`
	Replayed     int64 `json:"replayed"`
	Transactions int   `json:"transactions"`
	BrokenChain  int   `json:"brokenChain"` // entries whose before does not match the previous after
}

// Consistent reports whether the log reproduces the stored balance.
func (a LedgerAudit) Consistent() bool {
	return a.Stored == a.Replayed && a.BrokenChain == 0
}
