package stats

import "time"

// UserStats is the per-user rolling aggregate over completed games.
type UserStats struct {
	UserID             string                     `json:"user_id" bson:"_id"`
	TotalGames         int                        `json:"total_games" bson:"total_games"`
	Wins               int                        `json:"wins" bson:"wins"`
	Losses             int                        `json:"losses" bson:"losses"`
	Draws              int                        `json:"draws" bson:"draws"`
	WinRate            float64                    `json:"win_rate" bson:"win_rate"`
	AvgDurationSeconds float64                    `json:"avg_duration_seconds" bson:"avg_duration_seconds"`
	AvgMoveCount       float64                    `json:"avg_move_count" bson:"avg_move_count"`
	PerDifficulty      map[string]DifficultyStats `json:"per_difficulty" bson:"per_difficulty"`
	UpdatedAt          time.Time                  `json:"updated_at" bson:"updated_at"`
}

type DifficultyStats struct {
	Games  int `json:"games" bson:"games"`
	Wins   int `json:"wins" bson:"wins"`
	Losses int `json:"losses" bson:"losses"`
	Draws  int `json:"draws" bson:"draws"`
}
