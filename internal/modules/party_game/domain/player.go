package domain

import "time"

// GamePlayer is a player's membership in one game. The auto-increment ID
// doubles as join order for stable ranking.
type GamePlayer struct {
	ID             int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	GameID         string    `json:"gameId" gorm:"column:game_id;type:varchar(36);not null;uniqueIndex:idx_game_players_pair,priority:1"`
	PlayerID       int64     `json:"playerId" gorm:"column:player_id;not null;uniqueIndex:idx_game_players_pair,priority:2"`
	Score          int64     `json:"score" gorm:"column:score;not null;default:0"`
	CorrectAnswers int       `json:"correctAnswers" gorm:"column:correct_answers;not null;default:0"`
	TotalAnswers   int       `json:"totalAnswers" gorm:"column:total_answers;not null;default:0"`
	IsHost         bool      `json:"isHost" gorm:"column:is_host;not null;default:false"`
	IsSpectator    bool      `json:"isSpectator" gorm:"column:is_spectator;not null;default:false"`
	JoinedAt       time.Time `json:"joinedAt" gorm:"column:joined_at;autoCreateTime"`
}

func (GamePlayer) TableName() string {
	return "game_players"
}
