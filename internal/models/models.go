// internal/models/models.go
package models

import (
	"encoding/json"
	"time"
)

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	StatusScheduled GameStatus = "scheduled"
	StatusConfirmed GameStatus = "confirmed"
	StatusCompleted GameStatus = "completed"
	StatusCancelled GameStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s GameStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known lifecycle state.
func (s GameStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// User is a member of the group. The ID is issued by the identity provider
// and is the foreign key for every user-scoped record.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Nickname      string    `json:"nickname,omitempty"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	IsAdmin       bool      `json:"isAdmin"`
	IsWhitelisted bool      `json:"isWhitelisted"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// DisplayName prefers the nickname over the provider-supplied name.
func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

// MonthlyAvailability is one user's vote for one month: the Sundays they can
// play, or a blanket cannot-play flag. CannotPlayAnyDay implies Days is empty.
type MonthlyAvailability struct {
	UserID           string     `json:"userId"`
	Month            int        `json:"month"`
	Year             int        `json:"year"`
	Days             []int      `json:"days"`
	CannotPlayAnyDay bool       `json:"cannotPlayAnyDay"`
	HasVoted         bool       `json:"hasVoted"`
	VotedAt          *time.Time `json:"votedAt,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Teams is a split of game participants into two sides.
type Teams struct {
	Team1 []string `json:"team1"`
	Team2 []string `json:"team2"`
}

// Reservation holds the venue details an admin adds when confirming a game.
type Reservation struct {
	Location      string `json:"location"`
	Time          string `json:"time,omitempty"`
	CostPerPlayer string `json:"costPerPlayer,omitempty"`
	ReservedBy    string `json:"reservedBy,omitempty"`
	MapURL        string `json:"mapUrl,omitempty"`
	PaymentAlias  string `json:"paymentAlias,omitempty"`
}

// MVPWinners is the finalized MVP outcome of a game: one element for a clear
// winner, several when the top of the tally is tied. A single winner is
// serialized as a bare string, a tie as a list.
type MVPWinners []string

func (m MVPWinners) MarshalJSON() ([]byte, error) {
	if len(m) == 1 {
		return json.Marshal(m[0])
	}
	return json.Marshal([]string(m))
}

func (m *MVPWinners) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = MVPWinners{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*m = MVPWinners(many)
	return nil
}

// GameResult is the recorded outcome of a game. Scores and MVP are entered by
// separate admin actions, so either may be present without the other.
type GameResult struct {
	Team1Score *int       `json:"team1Score,omitempty"`
	Team2Score *int       `json:"team2Score,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	MVP        MVPWinners `json:"mvp,omitempty"`
}

// HasScore reports whether both team scores have been recorded.
func (r *GameResult) HasScore() bool {
	return r != nil && r.Team1Score != nil && r.Team2Score != nil
}

// Game is a match on a given Sunday: an ordered roster of up to ten
// participants, an ordered overflow waitlist, an optional team split, and the
// lifecycle state plus reservation and result details.
type Game struct {
	ID              int64        `json:"id"`
	Date            time.Time    `json:"date"`
	Status          GameStatus   `json:"status"`
	Participants    []string     `json:"participants"`
	Waitlist        []string     `json:"waitlist"`
	Teams           *Teams       `json:"teams,omitempty"`
	OriginalTeams   *Teams       `json:"originalTeams,omitempty"`
	Reservation     *Reservation `json:"reservation,omitempty"`
	Result          *GameResult  `json:"result,omitempty"`
	ReadyNotified   bool         `json:"-"`
	ReadyNotifiedAt *time.Time   `json:"-"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// HasParticipant reports whether userID holds a guaranteed roster slot.
func (g *Game) HasParticipant(userID string) bool {
	return contains(g.Participants, userID)
}

// HasWaitlisted reports whether userID is on the overflow waitlist.
func (g *Game) HasWaitlisted(userID string) bool {
	return contains(g.Waitlist, userID)
}

// InMatch reports whether userID is part of the match at all.
func (g *Game) InMatch(userID string) bool {
	return g.HasParticipant(userID) || g.HasWaitlisted(userID)
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// NotificationType distinguishes the admin notification kinds.
type NotificationType string

const (
	NotificationMatchReady     NotificationType = "match_ready"
	NotificationVotingReminder NotificationType = "voting_reminder"
)

// AdminNotification is an inbox entry for admins, created by the match-ready
// debounce or the voting reminder sweep.
type AdminNotification struct {
	ID             int64            `json:"id"`
	Type           NotificationType `json:"type"`
	GameID         *int64           `json:"gameId,omitempty"`
	Month          *int             `json:"month,omitempty"`
	Year           *int             `json:"year,omitempty"`
	Message        string           `json:"message"`
	Read           bool             `json:"read"`
	ActionRequired bool             `json:"actionRequired"`
	CreatedAt      time.Time        `json:"createdAt"`
}
