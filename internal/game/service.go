package game

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SlpAus/spot-the-lie-backend/internal/activity"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// CreateInput is a game as submitted by its creator.
type CreateInput struct {
	Statements       []string `json:"statements" binding:"required"`
	LieStatement     int      `json:"lieStatement" binding:"required"`
	Explanation      *string  `json:"explanation"`
	AllowFriendsOnly bool     `json:"allowFriendsOnly"`
}

func (in *CreateInput) validate() error {
	if len(in.Statements) != StatementCount {
		return apperr.Validation("a game needs exactly %d statements, got %d", StatementCount, len(in.Statements))
	}
	for i, s := range in.Statements {
		s = strings.TrimSpace(s)
		if s == "" {
			return apperr.Validation("statement %d is empty", i+1)
		}
		if utf8.RuneCountInString(s) > MaxStatementLength {
			return apperr.Validation("statement %d exceeds %d characters", i+1, MaxStatementLength)
		}
		in.Statements[i] = s
	}
	if in.LieStatement < 1 || in.LieStatement > StatementCount {
		return apperr.Validation("lieStatement must be between 1 and %d", StatementCount)
	}
	if in.Explanation != nil {
		e := strings.TrimSpace(*in.Explanation)
		if utf8.RuneCountInString(e) > MaxExplanationLength {
			return apperr.Validation("explanation exceeds %d characters", MaxExplanationLength)
		}
		if e == "" {
			in.Explanation = nil
		} else {
			in.Explanation = &e
		}
	}
	return nil
}

// Service owns game rows and builds the read views over them.
type Service struct {
	db         *gorm.DB
	ledger     *user.Ledger
	activities *activity.Log
	listeners  []user.ChangeListener
	Now        func() time.Time
}

func NewService(db *gorm.DB, ledger *user.Ledger, activities *activity.Log) *Service {
	return &Service{
		db:         db,
		ledger:     ledger,
		activities: activities,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// OnChange registers listeners told after a game is created or closed.
func (s *Service) OnChange(listeners ...user.ChangeListener) {
	s.listeners = append(s.listeners, listeners...)
}

func (s *Service) notify(ctx context.Context) {
	for _, l := range s.listeners {
		l.ScoresChanged(ctx)
	}
}

// CreateGame publishes a game for creatorID. The creator's games counter and
// the game_created activity commit with it or not at all.
func (s *Service) CreateGame(ctx context.Context, creatorID string, in CreateInput) (*Game, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(in.Statements)
	if err != nil {
		return nil, apperr.Validation("statements are not serializable: %v", err)
	}

	now := s.Now()
	g := &Game{
		CreatorID:        creatorID,
		Statements:       datatypes.JSON(raw),
		LieStatement:     in.LieStatement,
		Explanation:      in.Explanation,
		IsActive:         true,
		AllowFriendsOnly: in.AllowFriendsOnly,
		ExpiresAt:        now.Add(Lifetime),
		CreatedAt:        now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.ledger.WithTx(tx).UpdateUserStats(ctx, creatorID, user.IncrementGamesCreated())
		if errors.Is(err, user.ErrUserNotFound) {
			return apperr.Wrap(apperr.KindValidation, err, "creator does not exist")
		}
		if err != nil {
			return err
		}
		if err := tx.Create(g).Error; err != nil {
			return apperr.Storage(err, "create game")
		}
		_, err = s.activities.WithTx(tx).Append(ctx, creatorID, activity.TypeGameCreated,
			"Created a new truth or lie game", map[string]any{"gameId": g.ID})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx)
	return g, nil
}

// GetGame loads a game by ID.
func (s *Service) GetGame(ctx context.Context, id string) (*Game, error) {
	var g Game
	err := database.RetryRead(ctx, func() error {
		return s.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, apperr.Storage(err, "load game")
	}
	return &g, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ActiveGames lists games accepting votes, newest first. Friends-only games
// are shown to their creator and the creator's friends; friendsOnly further
// restricts the list to games created by the viewer's friends.
func (s *Service) ActiveGames(ctx context.Context, limit int, friendsOnly bool, viewerID string) ([]GameWithCreator, error) {
	now := s.Now()

	var friends []string
	if viewerID != "" {
		var err error
		if friends, err = s.ledger.FriendIDs(ctx, viewerID); err != nil {
			return nil, err
		}
	}
	if friendsOnly && len(friends) == 0 {
		return []GameWithCreator{}, nil
	}

	visible := append(append([]string{}, friends...), viewerID)
	var games []Game
	err := database.RetryRead(ctx, func() error {
		games = nil
		q := s.db.WithContext(ctx).Where("is_active = ? AND expires_at > ?", true, now)
		if friendsOnly {
			q = q.Where("creator_id IN ?", friends)
		}
		if viewerID == "" {
			q = q.Where("allow_friends_only = ?", false)
		} else {
			q = q.Where("(allow_friends_only = ? OR creator_id IN ?)", false, visible)
		}
		return q.Order("created_at DESC").Order("id DESC").Limit(clampLimit(limit)).Find(&games).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "list active games")
	}
	return s.decorate(ctx, games, viewerID, now)
}

// friendsOnlyVisible reports whether viewerID may see the games of creatorID
// that are limited to friends.
func (s *Service) friendsOnlyVisible(ctx context.Context, creatorID, viewerID string) (bool, error) {
	if viewerID == "" {
		return false, nil
	}
	if viewerID == creatorID {
		return true, nil
	}
	return s.ledger.IsFriend(ctx, viewerID, creatorID)
}

// GameWithCreator returns one game as seen by viewerID, who may be empty.
// A friends-only game is reported missing to anyone but the creator and
// the creator's friends.
func (s *Service) GameWithCreator(ctx context.Context, id, viewerID string) (*GameWithCreator, error) {
	g, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.AllowFriendsOnly {
		ok, err := s.friendsOnlyVisible(ctx, g.CreatorID, viewerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrGameNotFound
		}
	}
	views, err := s.decorate(ctx, []Game{*g}, viewerID, s.Now())
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// GameWithResults returns the answer and every vote. Whether the viewer may
// see it is decided by the caller through ResultsVisible.
func (s *Service) GameWithResults(ctx context.Context, id, viewerID string) (*GameWithResults, error) {
	base, err := s.GameWithCreator(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	var votes []Ballot
	err = database.RetryRead(ctx, func() error {
		votes = nil
		return s.db.WithContext(ctx).Where("game_id = ?", id).
			Order("created_at ASC").Order("id ASC").Find(&votes).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "load votes")
	}
	return newResults(*base, votes), nil
}

// UserGames lists games created by userID, newest first, as seen by
// viewerID. Friends-only games are left out unless viewerID may see them.
func (s *Service) UserGames(ctx context.Context, userID, viewerID string, limit int) ([]GameWithCreator, error) {
	showFriendsOnly, err := s.friendsOnlyVisible(ctx, userID, viewerID)
	if err != nil {
		return nil, err
	}
	var games []Game
	err = database.RetryRead(ctx, func() error {
		games = nil
		q := s.db.WithContext(ctx).Where("creator_id = ?", userID)
		if !showFriendsOnly {
			q = q.Where("allow_friends_only = ?", false)
		}
		return q.Order("created_at DESC").Order("id DESC").
			Limit(clampLimit(limit)).Find(&games).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "list user games")
	}
	return s.decorate(ctx, games, viewerID, s.Now())
}

// ExpireGame deactivates a game ahead of its expiry. Only the creator may do
// this; repeating it is a no-op.
func (s *Service) ExpireGame(ctx context.Context, id, actorID string) (*Game, error) {
	g, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.CreatorID != actorID {
		return nil, apperr.Forbidden("only the creator can close this game")
	}
	if !g.IsActive {
		return g, nil
	}
	if err := s.db.WithContext(ctx).Model(&Game{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		return nil, apperr.Storage(err, "expire game")
	}
	g.IsActive = false
	s.notify(ctx)
	return g, nil
}

type voteTally struct {
	GameID string
	Total  int64
}

// decorate attaches creators, vote counts and the viewer's own vote using
// one query per concern rather than one per game.
func (s *Service) decorate(ctx context.Context, games []Game, viewerID string, now time.Time) ([]GameWithCreator, error) {
	out := make([]GameWithCreator, 0, len(games))
	if len(games) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(games))
	creatorIDs := make([]string, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ID)
		creatorIDs = append(creatorIDs, g.CreatorID)
	}

	creators, err := s.ledger.GetUsers(ctx, creatorIDs)
	if err != nil {
		return nil, err
	}

	var tallies []voteTally
	err = database.RetryRead(ctx, func() error {
		tallies = nil
		return s.db.WithContext(ctx).Model(&Ballot{}).
			Select("game_id, COUNT(*) AS total").
			Where("game_id IN ?", ids).
			Group("game_id").
			Scan(&tallies).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "count votes")
	}
	counts := make(map[string]int64, len(tallies))
	for _, t := range tallies {
		counts[t.GameID] = t.Total
	}

	own := make(map[string]Ballot)
	if viewerID != "" {
		var ballots []Ballot
		err = database.RetryRead(ctx, func() error {
			ballots = nil
			return s.db.WithContext(ctx).Where("voter_id = ? AND game_id IN ?", viewerID, ids).Find(&ballots).Error
		})
		if err != nil {
			return nil, apperr.Storage(err, "load viewer votes")
		}
		for _, b := range ballots {
			own[b.GameID] = b
		}
	}

	for _, g := range games {
		status := g.StatusAt(now)
		v := GameWithCreator{
			Game:          g,
			Status:        status,
			VoteCount:     counts[g.ID],
			TimeRemaining: TimeRemaining(status, g.ExpiresAt, now),
		}
		if c, ok := creators[g.CreatorID]; ok {
			v.Creator = &c
		}
		if b, ok := own[g.ID]; ok {
			v.HasVoted = true
			v.UserVote = &b
		}
		out = append(out, v)
	}
	return out, nil
}
