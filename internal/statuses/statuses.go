package statuses

const (
	StatusPlaying   = "playing"
	StatusCheck     = "check"
	StatusCheckmate = "checkmate"
	StatusStalemate = "stalemate"
	StatusDraw      = "draw"
)

const (
	ColorWhite = "white"
	ColorBlack = "black"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	WinnerWhite = "white"
	WinnerBlack = "black"
	WinnerDraw  = "draw"
)

const (
	ReasonCheckmate = "checkmate"
	ReasonStalemate = "stalemate"
	ReasonDraw      = "draw"
)

// IsTerminal reports whether no further moves are accepted for a game
// in the given status.
func IsTerminal(status string) bool {
	switch status {
	case StatusCheckmate, StatusStalemate, StatusDraw:
		return true
	}
	return false
}

func IsValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

func IsValidColor(c string) bool {
	return c == ColorWhite || c == ColorBlack
}

// OppositeColor returns black for white and white for black.
func OppositeColor(c string) string {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}
