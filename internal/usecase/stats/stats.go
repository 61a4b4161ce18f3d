package stats

import (
	"context"
	"time"

	"go.uber.org/zap"

	gameDomain "chess_mate/internal/domain/game"
	statsDomain "chess_mate/internal/domain/stats"
	"chess_mate/internal/statuses"
)

type StatsStore interface {
	GetUserStats(ctx context.Context, userID string) (statsDomain.UserStats, error)
	SaveUserStats(ctx context.Context, st statsDomain.UserStats) error
}

// Aggregator folds completed games into per-user aggregates on a background
// worker. Updates are best-effort: the queue drops when saturated and a
// read-modify-write lost under concurrent terminal games for one user is an
// accepted limitation, not something to fix with transactions.
type Aggregator struct {
	store StatsStore
	log   *zap.SugaredLogger
	jobs  chan gameDomain.Game
	done  chan struct{}
}

func NewAggregator(store StatsStore, log *zap.SugaredLogger, queueSize int) *Aggregator {
	if queueSize <= 0 {
		queueSize = 64
	}
	a := &Aggregator{
		store: store,
		log:   log,
		jobs:  make(chan gameDomain.Game, queueSize),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Enqueue schedules a terminal game for aggregation and never blocks.
func (a *Aggregator) Enqueue(g gameDomain.Game) {
	if !g.Completed || g.Result == nil {
		return
	}
	select {
	case a.jobs <- g:
	default:
		a.log.Warnf("stats queue is full, dropping update for game %s", g.ID)
	}
}

// Close stops accepting work and waits for queued updates to drain.
func (a *Aggregator) Close() {
	close(a.jobs)
	<-a.done
}

func (a *Aggregator) run() {
	defer close(a.done)
	for g := range a.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.apply(ctx, g)
		cancel()
	}
}

func (a *Aggregator) apply(ctx context.Context, g gameDomain.Game) {
	st, err := a.store.GetUserStats(ctx, g.OwnerID)
	if err != nil {
		a.log.Warnf("failed to load stats for user %s: %v", g.OwnerID, err)
		return
	}
	st = Fold(st, g)
	if err := a.store.SaveUserStats(ctx, st); err != nil {
		a.log.Warnf("failed to save stats for user %s: %v", g.OwnerID, err)
	}
}

// Fold merges one completed game into the aggregate.
func Fold(st statsDomain.UserStats, g gameDomain.Game) statsDomain.UserStats {
	st.UserID = g.OwnerID
	if st.PerDifficulty == nil {
		st.PerDifficulty = make(map[string]statsDomain.DifficultyStats)
	}

	prev := float64(st.TotalGames)
	st.TotalGames++
	total := float64(st.TotalGames)

	diff := st.PerDifficulty[g.Difficulty]
	diff.Games++
	switch g.Result.Winner {
	case statuses.WinnerDraw:
		st.Draws++
		diff.Draws++
	case g.PlayerColor:
		st.Wins++
		diff.Wins++
	default:
		st.Losses++
		diff.Losses++
	}
	st.PerDifficulty[g.Difficulty] = diff

	st.WinRate = float64(st.Wins) / total
	st.AvgDurationSeconds = (st.AvgDurationSeconds*prev + float64(g.Result.DurationSeconds)) / total
	st.AvgMoveCount = (st.AvgMoveCount*prev + float64(g.Result.MoveCount)) / total
	st.UpdatedAt = time.Now()
	return st
}
