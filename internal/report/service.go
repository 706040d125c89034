package report

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/game"
	"github.com/SlpAus/spot-the-lie-backend/internal/leaderboard"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/cache"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"github.com/redis/go-redis/v9"
)

// CacheKey is the Redis hash holding serialized reports, one field per user ID.
const CacheKey = "report:cache"

// RankLookup resolves a user's leaderboard position.
type RankLookup interface {
	UserRank(ctx context.Context, userID string, tf leaderboard.Timeframe) (int, error)
}

// GameLister lists the games a user created.
type GameLister interface {
	UserGames(ctx context.Context, userID, viewerID string, limit int) ([]game.GameWithCreator, error)
}

type Service struct {
	ledger *user.Ledger
	ranks  RankLookup
	games  GameLister
	cache  *cache.Hash[UserStats]
	Now    func() time.Time
}

// NewService builds the report service. rdb may be nil to disable caching.
func NewService(ledger *user.Ledger, ranks RankLookup, games GameLister, rdb *redis.Client, health cache.HealthReporter, ttl time.Duration) *Service {
	return &Service{
		ledger: ledger,
		ranks:  ranks,
		games:  games,
		cache:  cache.NewHash[UserStats](rdb, health, CacheKey, ttl),
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetUserStats assembles a user's counters, ranks and latest games.
func (s *Service) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	gen := s.cache.Generation(ctx)
	if cached, ok := s.cache.Get(ctx, gen, userID); ok {
		return &cached, nil
	}

	u, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	weekly, err := s.ranks.UserRank(ctx, userID, leaderboard.Weekly)
	if err != nil {
		return nil, err
	}
	allTime, err := s.ranks.UserRank(ctx, userID, leaderboard.AllTime)
	if err != nil {
		return nil, err
	}
	// Reports are shared between viewers, so only public games are listed.
	recent, err := s.games.UserGames(ctx, userID, "", RecentGamesShown)
	if err != nil {
		return nil, err
	}

	stats := UserStats{
		UserID:         u.ID,
		Handle:         u.ExternalHandle,
		GeneratedAt:    s.Now(),
		Points:         u.Points,
		GamesCreated:   u.TotalGamesCreated,
		GamesPlayed:    u.TotalGamesPlayed,
		CorrectGuesses: u.TotalCorrectGuesses,
		PlayersStumped: u.TotalPlayersStumped,
		Streak:         u.CurrentStreak,
		Rank:           weekly,
		AllTimeRank:    allTime,
		RecentGames:    recent,
	}
	if u.TotalGamesPlayed > 0 {
		acc := int(math.Round(float64(u.TotalCorrectGuesses) * 100 / float64(u.TotalGamesPlayed)))
		stats.Accuracy = &acc
	}

	s.cache.Set(ctx, gen, userID, stats)
	return &stats, nil
}

// ScoresChanged drops cached reports after any write to user stats or games.
func (s *Service) ScoresChanged(ctx context.Context) {
	if err := s.Invalidate(ctx); err != nil {
		log.Printf("report: %v", err)
	}
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}
