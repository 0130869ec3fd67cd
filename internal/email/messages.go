package email

import (
	"fmt"
	"strings"
	"time"
)

// Message is a built email ready for dispatch.
type Message struct {
	Subject string
	Body    string
}

type MatchConfirmedDetails struct {
	Date         time.Time
	Location     string
	Time         string
	Cost         string
	ReservedBy   string
	MapURL       string
	PaymentAlias string
}

type MatchReadyDetails struct {
	Date         time.Time
	Participants []string
}

type VotingReminderDetails struct {
	Month    time.Month
	Year     int
	VoteLink string
}

type MvpReminderDetails struct {
	Date         time.Time
	PaymentAlias string
	Cost         string
}

// FormatGameDate renders a game date the way the group reads it.
func FormatGameDate(date time.Time) string {
	return date.Format("Monday, Jan 2, 2006")
}

// BuildMatchConfirmed is the email sent to every participant when an admin
// confirms a game with reservation details.
func BuildMatchConfirmed(details MatchConfirmedDetails) Message {
	lines := []string{
		"Your match is confirmed.",
		"",
		fmt.Sprintf("Date: %s", FormatGameDate(details.Date)),
		fmt.Sprintf("Location: %s", details.Location),
	}
	if details.Time != "" {
		lines = append(lines, fmt.Sprintf("Time: %s", details.Time))
	}
	if details.Cost != "" {
		lines = append(lines, fmt.Sprintf("Cost per player: %s", details.Cost))
	}
	if details.ReservedBy != "" {
		lines = append(lines, fmt.Sprintf("Reserved by: %s", details.ReservedBy))
	}
	if details.MapURL != "" {
		lines = append(lines, fmt.Sprintf("Map: %s", details.MapURL))
	}
	if details.PaymentAlias != "" {
		lines = append(lines, fmt.Sprintf("Payment alias: %s", details.PaymentAlias))
	}

	return Message{
		Subject: fmt.Sprintf("Match Confirmed - %s", FormatGameDate(details.Date)),
		Body:    strings.Join(lines, "\n"),
	}
}

// BuildMatchReady is the admin email sent when a roster fills up and the game
// is waiting to be confirmed.
func BuildMatchReady(details MatchReadyDetails) Message {
	lines := []string{
		fmt.Sprintf("A match for %s has a full roster and needs confirmation.", FormatGameDate(details.Date)),
		"",
		"Participants:",
	}
	for i, name := range details.Participants {
		lines = append(lines, fmt.Sprintf("%2d. %s", i+1, name))
	}

	return Message{
		Subject: fmt.Sprintf("Match Ready - %s", FormatGameDate(details.Date)),
		Body:    strings.Join(lines, "\n"),
	}
}

// BuildVotingReminder nudges a member who has not voted availability for the
// active month.
func BuildVotingReminder(details VotingReminderDetails) Message {
	lines := []string{
		fmt.Sprintf("You haven't voted your availability for %s %d yet.", details.Month, details.Year),
		"",
		"Mark the Sundays you can play, or let the group know you can't make it this month.",
	}
	if details.VoteLink != "" {
		lines = append(lines, "", fmt.Sprintf("Vote here: %s", details.VoteLink))
	}

	return Message{
		Subject: fmt.Sprintf("Availability Reminder - %s %d", details.Month, details.Year),
		Body:    strings.Join(lines, "\n"),
	}
}

// BuildMvpReminder is sent to participants when a game completes, asking for
// MVP votes and payment.
func BuildMvpReminder(details MvpReminderDetails) Message {
	lines := []string{
		fmt.Sprintf("The match on %s is in the books.", FormatGameDate(details.Date)),
		"",
		"Don't forget to cast your MVP vote.",
	}
	if details.Cost != "" {
		payment := fmt.Sprintf("Payment due: %s", details.Cost)
		if details.PaymentAlias != "" {
			payment = fmt.Sprintf("%s (alias: %s)", payment, details.PaymentAlias)
		}
		lines = append(lines, payment)
	}

	return Message{
		Subject: fmt.Sprintf("MVP Vote & Payment - %s", FormatGameDate(details.Date)),
		Body:    strings.Join(lines, "\n"),
	}
}
