package views

import (
	"sort"
	"strings"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
)

// Tab selects which activities a feed shows.
type Tab string

const (
	TabAll      Tab = "all"
	TabEarned   Tab = "earned"
	TabRedeemed Tab = "redeemed"
)

func ParseTab(s string) (Tab, error) {
	switch Tab(strings.ToLower(strings.TrimSpace(s))) {
	case "", TabAll:
		return TabAll, nil
	case TabEarned:
		return TabEarned, nil
	case TabRedeemed:
		return TabRedeemed, nil
	}
	return "", apperr.ValidationErr("Unknown history tab.", map[string]string{"tab": "Use all, earned or redeemed."})
}

// ActivityLine is an entry with its signed amount for display.
type ActivityLine struct {
	models.ActivityEntry
	Amount int `json:"amount"`
}

// ActivityFeed is the history page: entries newest first and totals over
// every entry regardless of tab.
type ActivityFeed struct {
	Tab           Tab            `json:"tab"`
	Entries       []ActivityLine `json:"entries"`
	TotalEarned   int            `json:"total_earned"`
	TotalRedeemed int            `json:"total_redeemed"`
	Net           int            `json:"net"`
}

// Activity builds the feed for a tab.
func Activity(entries []models.ActivityEntry, tab Tab) ActivityFeed {
	sorted := append([]models.ActivityEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.After(sorted[j].OccurredAt)
	})

	feed := ActivityFeed{Tab: tab, Entries: []ActivityLine{}}
	for _, e := range sorted {
		switch e.Kind {
		case models.ActivityEarned:
			feed.TotalEarned += e.Points
		case models.ActivityRedeemed:
			feed.TotalRedeemed += e.Points
		}
		if tab == TabAll || string(tab) == string(e.Kind) {
			feed.Entries = append(feed.Entries, ActivityLine{ActivityEntry: e, Amount: e.SignedAmount()})
		}
	}
	feed.Net = feed.TotalEarned - feed.TotalRedeemed
	return feed
}

// Recent returns the n newest entries.
func Recent(entries []models.ActivityEntry, n int) []ActivityLine {
	lines := Activity(entries, TabAll).Entries
	if n >= 0 && len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
