package views

import (
	"strings"
	"time"

	"github.com/matthieukhl/loyaltydesk/internal/models"
)

// Achievement thresholds
const (
	PointCollectorPoints = 10000
	LoyalMemberMonths    = 6
	ReferralMasterCount  = 5
	BigSpenderCount      = 20
	referralCategory     = "referral"
)

// TierRung is one row of the tier ladder. A tier is unlocked once lifetime
// earned points reach its threshold; Current follows the spendable balance.
type TierRung struct {
	Tier
	Unlocked bool `json:"unlocked"`
	Current  bool `json:"current"`
}

type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
}

// ProfileView is the member profile page.
type ProfileView struct {
	Account          models.Account `json:"account"`
	Points           int            `json:"points"`
	CurrentTier      Tier           `json:"current_tier"`
	MemberSince      *time.Time     `json:"member_since,omitempty"`
	LifetimeEarned   int            `json:"lifetime_earned"`
	LifetimeRedeemed int            `json:"lifetime_redeemed"`
	Redemptions      int            `json:"redemptions"`
	Referrals        int            `json:"referrals"`
	Tiers            []TierRung     `json:"tiers"`
	Achievements     []Achievement  `json:"achievements"`
}

// Profile builds the profile page from the account, its spendable balance
// and the full activity feed.
func Profile(account models.Account, points int, entries []models.ActivityEntry, now time.Time) ProfileView {
	v := ProfileView{Account: account, Points: points, CurrentTier: TierFor(points)}
	if !account.CreatedDate.IsZero() {
		since := account.CreatedDate
		v.MemberSince = &since
	}

	for _, e := range entries {
		switch e.Kind {
		case models.ActivityEarned:
			v.LifetimeEarned += e.Points
			if strings.EqualFold(e.Category, referralCategory) {
				v.Referrals++
			}
		case models.ActivityRedeemed:
			v.LifetimeRedeemed += e.Points
			v.Redemptions++
		}
	}

	v.Tiers = make([]TierRung, len(Tiers))
	for i, t := range Tiers {
		v.Tiers[i] = TierRung{
			Tier:     t,
			Unlocked: v.LifetimeEarned >= t.MinPoints,
			Current:  t.Name == v.CurrentTier.Name,
		}
	}

	v.Achievements = []Achievement{
		{ID: "first-redemption", Title: "First Redemption", Description: "Redeemed your first reward",
			Unlocked: v.Redemptions >= 1},
		{ID: "point-collector", Title: "Point Collector", Description: "Earned 10,000+ points",
			Unlocked: v.LifetimeEarned >= PointCollectorPoints},
		{ID: "loyal-member", Title: "Loyal Member", Description: "Member for 6 months",
			Unlocked: v.MemberSince != nil && !now.Before(v.MemberSince.AddDate(0, LoyalMemberMonths, 0))},
		{ID: "gold-status", Title: "Gold Status", Description: "Reached Gold tier",
			Unlocked: tierUnlocked(v.Tiers, "Gold")},
		{ID: "referral-master", Title: "Referral Master", Description: "Referred 5 friends",
			Unlocked: v.Referrals >= ReferralMasterCount},
		{ID: "big-spender", Title: "Big Spender", Description: "Redeemed 20+ rewards",
			Unlocked: v.Redemptions >= BigSpenderCount},
	}
	return v
}

func tierUnlocked(rungs []TierRung, name string) bool {
	for _, r := range rungs {
		if r.Name == name {
			return r.Unlocked
		}
	}
	return false
}
