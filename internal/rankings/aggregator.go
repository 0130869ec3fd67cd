// internal/rankings/aggregator.go
package rankings

import (
	"context"
	"errors"
	"sort"

	"github.com/ivanrubin10/fulbojubilados/internal/db"
	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

var ErrInvalidQuarter = errors.New("quarter must be 1-4")

// PlayerStats is the per-player line of a ranking table. Goals are team
// totals credited to every member of the side.
type PlayerStats struct {
	UserID       string  `json:"userId"`
	Name         string  `json:"name"`
	GamesPlayed  int     `json:"gamesPlayed"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Draws        int     `json:"draws"`
	GoalsFor     int     `json:"goalsFor"`
	GoalsAgainst int     `json:"goalsAgainst"`
	MVPAwards    int     `json:"mvpAwards"`
	MVPVotes     int     `json:"mvpVotes"`
	WinRate      float64 `json:"winRate"`
}

// GoalDiff is goals for minus goals against.
func (s PlayerStats) GoalDiff() int {
	return s.GoalsFor - s.GoalsAgainst
}

// AbsenceEntry is one row of the hall of shame.
type AbsenceEntry struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Absences int    `json:"absences"`
	Played   int    `json:"played"`
}

// Aggregator computes rankings over completed games with recorded teams and
// scores. It holds no state of its own; every call reads from the store.
type Aggregator struct {
	store *db.DB
}

func New(store *db.DB) *Aggregator {
	return &Aggregator{store: store}
}

// Scope selects the games a ranking covers: a whole year, or one calendar
// quarter of it.
type Scope struct {
	Year    int
	Quarter int // 0 means the whole year
}

func (s Scope) months() []int {
	if s.Quarter == 0 {
		return []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	}
	start := (s.Quarter-1)*3 + 1
	return []int{start, start + 1, start + 2}
}

// Compute builds the per-player stats for a scope. Only completed games with
// both a team split and a recorded score count toward played games; MVP votes
// are tallied from every completed in-scope game.
func (a *Aggregator) Compute(ctx context.Context, scope Scope) ([]PlayerStats, error) {
	if scope.Quarter < 0 || scope.Quarter > 4 {
		return nil, ErrInvalidQuarter
	}

	games, err := a.completedGames(ctx, scope)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*PlayerStats)
	touch := func(userID string) *PlayerStats {
		if s, ok := stats[userID]; ok {
			return s
		}
		s := &PlayerStats{UserID: userID}
		stats[userID] = s
		return s
	}

	for _, game := range games {
		if game.Teams != nil && game.Result.HasScore() {
			s1, s2 := *game.Result.Team1Score, *game.Result.Team2Score
			creditSide(touch, game.Teams.Team1, s1, s2)
			creditSide(touch, game.Teams.Team2, s2, s1)
		}
		if game.Result != nil {
			for _, winner := range game.Result.MVP {
				touch(winner).MVPAwards++
			}
		}
		ballots, err := a.store.Queries.ListMvpBallots(ctx, game.ID)
		if err != nil {
			return nil, err
		}
		for _, candidate := range ballots {
			touch(candidate).MVPVotes++
		}
	}

	table := make([]PlayerStats, 0, len(stats))
	for _, s := range stats {
		if s.GamesPlayed > 0 {
			s.WinRate = float64(s.Wins) / float64(s.GamesPlayed)
		}
		table = append(table, *s)
	}
	if err := a.fillNames(ctx, table); err != nil {
		return nil, err
	}
	return table, nil
}

func creditSide(touch func(string) *PlayerStats, side []string, scored, conceded int) {
	for _, userID := range side {
		s := touch(userID)
		s.GamesPlayed++
		s.GoalsFor += scored
		s.GoalsAgainst += conceded
		switch {
		case scored > conceded:
			s.Wins++
		case scored < conceded:
			s.Losses++
		default:
			s.Draws++
		}
	}
}

// TopWinners ranks players by wins alone.
func (a *Aggregator) TopWinners(ctx context.Context, scope Scope) ([]PlayerStats, error) {
	table, err := a.Compute(ctx, scope)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(table, func(i, j int) bool {
		return table[i].Wins > table[j].Wins
	})
	return table, nil
}

// minGamesForRate is the appearance floor below which a win rate is noise.
const minGamesForRate = 3

// BestWinRate ranks players with at least three games by win rate, breaking
// ties on MVP awards, then MVP votes, then goal differential.
func (a *Aggregator) BestWinRate(ctx context.Context, scope Scope) ([]PlayerStats, error) {
	table, err := a.Compute(ctx, scope)
	if err != nil {
		return nil, err
	}
	qualified := table[:0]
	for _, s := range table {
		if s.GamesPlayed >= minGamesForRate {
			qualified = append(qualified, s)
		}
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		if qualified[i].WinRate != qualified[j].WinRate {
			return qualified[i].WinRate > qualified[j].WinRate
		}
		return lessByMVPThenDiff(qualified[i], qualified[j])
	})
	return qualified, nil
}

// DetailedTable is the full standings view: wins, then win rate, then the
// MVP and goal-differential chain.
func (a *Aggregator) DetailedTable(ctx context.Context, scope Scope) ([]PlayerStats, error) {
	table, err := a.Compute(ctx, scope)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(table, func(i, j int) bool {
		if table[i].Wins != table[j].Wins {
			return table[i].Wins > table[j].Wins
		}
		if table[i].WinRate != table[j].WinRate {
			return table[i].WinRate > table[j].WinRate
		}
		return lessByMVPThenDiff(table[i], table[j])
	})
	return table, nil
}

func lessByMVPThenDiff(a, b PlayerStats) bool {
	if a.MVPAwards != b.MVPAwards {
		return a.MVPAwards > b.MVPAwards
	}
	if a.MVPVotes != b.MVPVotes {
		return a.MVPVotes > b.MVPVotes
	}
	return a.GoalDiff() > b.GoalDiff()
}

// HallOfShame lists whitelisted non-admin users by how many in-scope
// completed games they missed. Users with perfect attendance are omitted.
func (a *Aggregator) HallOfShame(ctx context.Context, scope Scope) ([]AbsenceEntry, error) {
	if scope.Quarter < 0 || scope.Quarter > 4 {
		return nil, ErrInvalidQuarter
	}

	games, err := a.completedGames(ctx, scope)
	if err != nil {
		return nil, err
	}
	users, err := a.store.Queries.ListActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	// Attendance means appearing in either team, so a waitlisted player who
	// was fielded counts and a rostered player who never played does not.
	played := make(map[string]int)
	for _, game := range games {
		if game.Teams == nil {
			continue
		}
		for _, userID := range game.Teams.Team1 {
			played[userID]++
		}
		for _, userID := range game.Teams.Team2 {
			played[userID]++
		}
	}

	var entries []AbsenceEntry
	for _, user := range users {
		absences := len(games) - played[user.ID]
		if absences <= 0 {
			continue
		}
		entries = append(entries, AbsenceEntry{
			UserID:   user.ID,
			Name:     user.DisplayName(),
			Absences: absences,
			Played:   played[user.ID],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Absences > entries[j].Absences
	})
	return entries, nil
}

func (a *Aggregator) completedGames(ctx context.Context, scope Scope) ([]models.Game, error) {
	var completed []models.Game
	for _, month := range scope.months() {
		games, err := a.store.Queries.ListGamesForPeriod(ctx, month, scope.Year)
		if err != nil {
			return nil, err
		}
		for _, game := range games {
			if game.Status == models.StatusCompleted {
				completed = append(completed, game)
			}
		}
	}
	return completed, nil
}

func (a *Aggregator) fillNames(ctx context.Context, table []PlayerStats) error {
	users, err := a.store.Queries.ListUsers(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.ID] = user.DisplayName()
	}
	for i := range table {
		if name, ok := names[table[i].UserID]; ok {
			table[i].Name = name
		} else {
			table[i].Name = table[i].UserID
		}
	}
	return nil
}
