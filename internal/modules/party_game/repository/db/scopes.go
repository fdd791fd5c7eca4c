package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate takes an exclusive row lock. Dialects without row locks (sqlite)
// drop the clause and rely on the transaction itself.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// forUpdateSkipLocked locks the selected row and skips rows that another
// transaction already holds.
func forUpdateSkipLocked(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
}

// chillFilter keeps only rounds nobody flagged. It is the single place the
// chill predicate lives.
func chillFilter(chill bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !chill {
			return db
		}
		return db.Where("flag_count = ?", 0)
	}
}

// seeded restricts to deck rounds.
func seeded(db *gorm.DB) *gorm.DB {
	return db.Where("source_round_id IS NULL")
}

// played restricts to rounds that were put into play and not consumed by a
// draw.
func played(db *gorm.DB) *gorm.DB {
	return db.Where("consumed = ?", false)
}
