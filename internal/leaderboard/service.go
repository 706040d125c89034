package leaderboard

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Timeframe selects which points a leaderboard ranks by.
type Timeframe string

const (
	Weekly  Timeframe = "weekly"
	AllTime Timeframe = "all-time"
)

const (
	// WeeklyWindow is the rolling window summed for weekly points.
	WeeklyWindow = 7 * 24 * time.Hour

	DefaultLimit      = 10
	MaxLimit          = 100
	DefaultRankWindow = 100
)

func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case Weekly, AllTime:
		return Timeframe(s), nil
	case "":
		return Weekly, nil
	default:
		return "", apperr.Validation("unknown timeframe %q", s)
	}
}

// Entry is one ranked user. Points are the points of the requested timeframe.
type Entry struct {
	Rank   int       `json:"rank"`
	User   user.User `json:"user"`
	Points int64     `json:"points"`
}

type rankedRow struct {
	user.User
	RankPoints int64
}

// Service derives rankings from the user ledger. It never writes to it.
type Service struct {
	db         *gorm.DB
	cache      Cache
	rankWindow int
	group      singleflight.Group
	version    atomic.Int64
	Now        func() time.Time
}

// NewService builds a Service. cache may be nil.
func NewService(db *gorm.DB, cache Cache, rankWindow int) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if rankWindow <= 0 {
		rankWindow = DefaultRankWindow
	}
	return &Service{
		db:         db,
		cache:      cache,
		rankWindow: rankWindow,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// pointSelector scopes a users query so that rank_points holds the points
// of tf.
func (s *Service) pointSelector(tf Timeframe) (func(*gorm.DB) *gorm.DB, error) {
	switch tf {
	case AllTime:
		return func(q *gorm.DB) *gorm.DB {
			return q.Select("users.*, users.points AS rank_points")
		}, nil
	case Weekly:
		since := s.Now().Add(-WeeklyWindow)
		return func(q *gorm.DB) *gorm.DB {
			return q.Select("users.*, CAST(COALESCE(SUM(point_entries.delta), 0) AS BIGINT) AS rank_points").
				Joins("LEFT JOIN point_entries ON point_entries.user_id = users.id AND point_entries.created_at >= ?", since).
				Group("users.id")
		}, nil
	default:
		return nil, apperr.Validation("unknown timeframe %q", tf)
	}
}

// rank is the single ranking query: points descending, ties by creation order.
func (s *Service) rank(ctx context.Context, tf Timeframe, limit int) ([]Entry, error) {
	selectPoints, err := s.pointSelector(tf)
	if err != nil {
		return nil, err
	}
	var rows []rankedRow
	err = database.RetryRead(ctx, func() error {
		rows = nil
		return selectPoints(s.db.WithContext(ctx).Table("users")).
			Order("rank_points DESC").
			Order("users.created_at ASC").
			Order("users.id ASC").
			Limit(limit).
			Scan(&rows).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "rank users")
	}
	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{Rank: i + 1, User: r.User, Points: r.RankPoints}
	}
	return entries, nil
}

// Leaderboard returns the top limit users for tf.
func (s *Service) Leaderboard(ctx context.Context, tf Timeframe, limit int) ([]Entry, error) {
	limit = clampLimit(limit)
	field := fmt.Sprintf("%s:%d", tf, limit)
	gen := s.cache.Generation(ctx)
	if entries, ok := s.cache.Get(ctx, gen, field); ok {
		return entries, nil
	}

	// Callers arriving after ScoresChanged must not join a fill that read
	// the old scores.
	version := s.version.Load()
	v, err, _ := s.group.Do(fmt.Sprintf("%s@%d/%d", field, gen, version), func() (any, error) {
		entries, err := s.rank(ctx, tf, limit)
		if err != nil {
			return nil, err
		}
		if s.version.Load() == version {
			s.cache.Set(ctx, gen, field, entries)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Entry), nil
}

func (s *Service) WeeklyLeaderboard(ctx context.Context, limit int) ([]Entry, error) {
	return s.Leaderboard(ctx, Weekly, limit)
}

func (s *Service) AllTimeLeaderboard(ctx context.Context, limit int) ([]Entry, error) {
	return s.Leaderboard(ctx, AllTime, limit)
}

// UserRank returns userID's 1-based rank among the first rankWindow entries
// of tf, or 0 when the user is outside that window.
func (s *Service) UserRank(ctx context.Context, userID string, tf Timeframe) (int, error) {
	entries, err := s.rank(ctx, tf, s.rankWindow)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.User.ID == userID {
			return e.Rank, nil
		}
	}
	return 0, nil
}

// ScoresChanged drops cached leaderboards after points move.
func (s *Service) ScoresChanged(ctx context.Context) {
	s.version.Add(1)
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("leaderboard: %v", err)
	}
}
