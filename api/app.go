package api

import (
	"github.com/SlpAus/spot-the-lie-backend/internal/activity"
	"github.com/SlpAus/spot-the-lie-backend/internal/game"
	"github.com/SlpAus/spot-the-lie-backend/internal/leaderboard"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/config"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/health"
	"github.com/SlpAus/spot-the-lie-backend/internal/report"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"github.com/SlpAus/spot-the-lie-backend/internal/vote"
	"github.com/SlpAus/spot-the-lie-backend/pkg/token"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the resources an App is built on. Redis and RedisStatus may be nil.
type Deps struct {
	DB          *gorm.DB
	Redis       *redis.Client
	RedisStatus *database.RedisStatus
	Tokens      *token.Issuer
	Config      *config.Config
}

// App holds every service, wired to one store.
type App struct {
	Tokens           *token.Issuer
	Ledger           *user.Ledger
	Activities       *activity.Log
	Games            *game.Service
	Votes            *vote.Engine
	Leaderboard      *leaderboard.Service
	LeaderboardCache leaderboard.Cache
	Reports          *report.Service
}

func NewApp(d Deps) *App {
	cfg := d.Config
	ledger := user.NewLedger(d.DB)
	activities := activity.NewLog(d.DB, ledger)
	games := game.NewService(d.DB, ledger, activities)

	boardCache := leaderboard.Cache(leaderboard.NopCache{})
	if d.Redis != nil {
		boardCache = leaderboard.NewRedisCache(d.Redis, d.RedisStatus, cfg.Leaderboard.CacheTTL)
	}
	board := leaderboard.NewService(d.DB, boardCache, cfg.Leaderboard.RankWindow)
	reports := report.NewService(ledger, board, games, d.Redis, d.RedisStatus, cfg.Report.CacheTTL)
	// Both caches embed user rows, so any committed profile or game change
	// drops them.
	ledger.OnChange(board, reports)
	games.OnChange(board, reports)

	return &App{
		Tokens:           d.Tokens,
		Ledger:           ledger,
		Activities:       activities,
		Games:            games,
		Votes:            vote.NewEngine(d.DB, ledger, activities, board, reports),
		Leaderboard:      board,
		LeaderboardCache: boardCache,
		Reports:          reports,
	}
}

// Caches lists everything that must be dropped when Redis contents become
// untrustworthy.
func (a *App) Caches() []health.Invalidator {
	return []health.Invalidator{a.LeaderboardCache, a.Reports}
}
