package api

import (
	"github.com/SlpAus/spot-the-lie-backend/internal/activity"
	"github.com/SlpAus/spot-the-lie-backend/internal/game"
	"github.com/SlpAus/spot-the-lie-backend/internal/leaderboard"
	"github.com/SlpAus/spot-the-lie-backend/internal/report"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"github.com/SlpAus/spot-the-lie-backend/internal/vote"
	"github.com/gin-gonic/gin"
)

// SetupRoutes registers every API route.
func SetupRoutes(router *gin.Engine, app *App) {
	users := user.NewHandler(app.Ledger, app.Tokens)
	games := game.NewHandler(app.Games)
	votes := vote.NewHandler(app.Votes, app.Games)
	board := leaderboard.NewHandler(app.Leaderboard)
	reports := report.NewHandler(app.Reports)
	feed := activity.NewHandler(app.Activities)

	api := router.Group("/api", user.LoadViewerMiddleware(app.Tokens))
	{
		api.POST("/auth/login", users.Login)

		userRoutes := api.Group("/users/:id")
		{
			userRoutes.GET("", users.GetUser)
			userRoutes.GET("/stats", reports.GetUserStats)
			userRoutes.GET("/games", games.ListByUser)
			userRoutes.GET("/activities", feed.GetUserActivities)
			userRoutes.GET("/rank", board.GetUserRank)
		}

		api.POST("/friends/:id", user.RequireViewer(), users.AddFriend)

		gameRoutes := api.Group("/games")
		{
			gameRoutes.GET("", games.ListActive)
			gameRoutes.POST("", user.RequireViewer(), games.Create)
			gameRoutes.GET("/:id", games.Get)
			gameRoutes.GET("/:id/results", games.Results)
			gameRoutes.POST("/:id/votes", user.RequireViewer(), votes.Cast)
			gameRoutes.POST("/:id/expire", user.RequireViewer(), games.Expire)
		}

		api.GET("/leaderboard", board.GetLeaderboard)
		api.GET("/activities", feed.GetRecent)
	}
}
