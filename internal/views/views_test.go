package views

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		points int
		want   string
		toNext int
		hasNxt bool
	}{
		{0, "Bronze", 1000, true},
		{999, "Bronze", 1, true},
		{1000, "Silver", 2000, true},
		{2450, "Silver", 550, true},
		{3000, "Gold", 7000, true},
		{9999, "Gold", 1, true},
		{10000, "Platinum", 0, false},
		{250000, "Platinum", 0, false},
	}
	for _, tt := range tests {
		if got := TierFor(tt.points).Name; got != tt.want {
			t.Errorf("TierFor(%d) = %s, want %s", tt.points, got, tt.want)
		}
		n, ok := PointsToNext(tt.points)
		if n != tt.toNext || ok != tt.hasNxt {
			t.Errorf("PointsToNext(%d) = %d,%v want %d,%v", tt.points, n, ok, tt.toNext, tt.hasNxt)
		}
	}
}

func TestTierMonotonic(t *testing.T) {
	rank := map[string]int{}
	for i, tier := range Tiers {
		rank[tier.Name] = i
	}
	prev := 0
	for p := 0; p <= 12000; p += 7 {
		r := rank[TierFor(p).Name]
		if r < prev {
			t.Fatalf("tier dropped at %d points", p)
		}
		prev = r
		if n, ok := PointsToNext(p); ok && n <= 0 {
			t.Fatalf("PointsToNext(%d) = %d, want > 0", p, n)
		}
	}
}

func TestStanding(t *testing.T) {
	s := Standing(2000)
	if s.Current.Name != "Silver" || s.Next == nil || s.Next.Name != "Gold" {
		t.Fatalf("standing = %+v", s)
	}
	if s.Progress != 50 {
		t.Errorf("progress = %v, want 50", s.Progress)
	}
	top := Standing(12000)
	if top.Next != nil || top.Progress != 100 || top.PointsToNext != 0 {
		t.Errorf("top standing = %+v", top)
	}
}

var catalog = []models.RewardCatalogItem{
	{ID: "1", SKU: "GC-010", Title: "$10 Gift Card", Category: "giftcards", Points: 1000, Description: "Universal gift card"},
	{ID: "4", SKU: "MB-PRM", Title: "Premium Membership", Category: "memberships", Points: 5000, Description: "3 months access"},
	{ID: "7", SKU: "SV-EXP", Title: "Express Delivery", Category: "services", Points: 500, Description: "Free fast shipping"},
	{ID: "8", SKU: "MB-ANN", Title: "Annual Membership", Category: "memberships", Points: 12000, Description: "12 months access"},
}

func TestFilterRewardsIdentity(t *testing.T) {
	got := FilterRewards(catalog, "all", "")
	if !reflect.DeepEqual(got, catalog) {
		t.Errorf("identity filter changed the catalog: %v", got)
	}
	got[0].Title = "mutated"
	if catalog[0].Title == "mutated" {
		t.Error("filter result aliases the input")
	}
}

func TestFilterRewards(t *testing.T) {
	tests := []struct {
		name     string
		category string
		term     string
		wantIDs  []string
	}{
		{"category", "memberships", "", []string{"4", "8"}},
		{"category is case-insensitive", "Memberships", "", []string{"4", "8"}},
		{"term on title", "all", "gift", []string{"1"}},
		{"term on sku", "", "mb-ann", []string{"8"}},
		{"term on description", "all", "SHIPPING", []string{"7"}},
		{"category and term", "memberships", "12 months", []string{"8"}},
		{"no match", "services", "gift", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRewards(catalog, tt.category, tt.term)
			ids := []string{}
			for _, it := range got {
				ids = append(ids, it.ID)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
			again := FilterRewards(got, tt.category, tt.term)
			if !reflect.DeepEqual(again, got) {
				t.Errorf("filter is not idempotent: %v vs %v", again, got)
			}
		})
	}
}

func TestRewardCategories(t *testing.T) {
	want := []string{"all", "giftcards", "memberships", "services"}
	if got := RewardCategories(catalog); !reflect.DeepEqual(got, want) {
		t.Errorf("categories = %v", got)
	}
}

func TestCoverageBags(t *testing.T) {
	tests := []struct {
		l, w, cov float64
		want      int
		ok        bool
	}{
		{10, 10, 50, 3, true},
		{10, 5, 55, 1, true},
		{12, 8, 60, 2, true},
		{20, 15, 150, 3, true},
		{0, 10, 50, 0, false},
		{-5, 10, 50, 0, false},
		{10, 10, 0, 0, false},
		{math.NaN(), 10, 50, 0, false},
	}
	for _, tt := range tests {
		got, ok := CoverageBags(tt.l, tt.w, tt.cov)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CoverageBags(%v, %v, %v) = %d,%v want %d,%v", tt.l, tt.w, tt.cov, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCoverageEstimate(t *testing.T) {
	est, ok := Coverage(10, 10, models.CoverageProduct{Name: "254 Platinum Adhesive", Coverage: 50, Unit: "sq ft/bag"})
	if !ok {
		t.Fatal("expected an estimate")
	}
	if est.Area != 100 || est.AdjustedArea != 110 || est.Units != 3 {
		t.Errorf("estimate = %+v", est)
	}
	if _, ok := Coverage(0, 10, models.CoverageProduct{Coverage: 50}); ok {
		t.Error("zero length must suppress the estimate")
	}
}

func price(v float64) *float64 { return &v }

func TestResolveUnitPrice(t *testing.T) {
	entries := []models.PriceEntry{{ProductID: "p1", UnitPrice: 9.5}}
	if got := ResolveUnitPrice(models.Product{ID: "p1", Price: price(12)}, entries); got != 9.5 {
		t.Errorf("price entry should win, got %v", got)
	}
	if got := ResolveUnitPrice(models.Product{ID: "p2", Price: price(12)}, entries); got != 12 {
		t.Errorf("list price fallback, got %v", got)
	}
	if got := ResolveUnitPrice(models.Product{ID: "p3"}, entries); got != 0 {
		t.Errorf("zero fallback, got %v", got)
	}
}

func TestSummarizeOrder(t *testing.T) {
	products := []models.Product{
		{ID: "grout", Name: "SpectraLOCK Pro Grout", IsActive: true},
		{ID: "mortar", Name: "254 Platinum Adhesive", Price: price(24.5), IsActive: true},
		{ID: "old", Name: "Discontinued", Price: price(1), IsActive: false},
	}
	entries := []models.PriceEntry{{ProductID: "grout", UnitPrice: 198.45}}

	summary, err := SummarizeOrder([]models.OrderDraftLine{
		{ProductID: "grout", Quantity: 12},
		{ProductID: "mortar", Quantity: 4},
	}, products, entries)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalQuantity != 16 {
		t.Errorf("quantity = %v", summary.TotalQuantity)
	}
	if math.Abs(summary.Lines[0].TotalPrice-2381.40) > 1e-9 {
		t.Errorf("line total = %v", summary.Lines[0].TotalPrice)
	}
	if math.Abs(summary.EstimatedTotal-2479.40) > 1e-9 {
		t.Errorf("estimated total = %v", summary.EstimatedTotal)
	}

	_, err = SummarizeOrder([]models.OrderDraftLine{{ProductID: "old", Quantity: 1}}, products, entries)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Validation || ae.Fields["lines[0].productId"] == "" {
		t.Errorf("inactive product: err = %v", err)
	}
}

func TestValidateDraft(t *testing.T) {
	err := ValidateDraft(models.OrderDraft{Lines: []models.OrderDraftLine{{ProductID: "x", Quantity: 0}}})
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Validation {
		t.Fatalf("err = %v", err)
	}
	if _, ok := ae.Fields["account_id"]; !ok {
		t.Error("missing account_id field error")
	}
	if _, ok := ae.Fields["lines[0].quantity"]; !ok {
		t.Error("missing quantity field error")
	}
	if err := ValidateDraft(models.OrderDraft{AccountID: "a", Lines: []models.OrderDraftLine{{ProductID: "x", Quantity: 1}}}); err != nil {
		t.Errorf("valid draft rejected: %v", err)
	}
}

func day(d int) time.Time { return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC) }

func TestActivityFeed(t *testing.T) {
	entries := []models.ActivityEntry{
		models.Earned(150, "Purchase reward", "Shopping", day(5)),
		models.Redeemed(500, "$10 Gift Card", "Redemption", day(13)),
		models.Earned(200, "Referral bonus", "Referral", day(10)),
	}

	feed := Activity(entries, TabAll)
	if len(feed.Entries) != 3 {
		t.Fatalf("entries = %d", len(feed.Entries))
	}
	if feed.Entries[0].Description != "$10 Gift Card" || feed.Entries[0].Amount != -500 {
		t.Errorf("newest entry = %+v", feed.Entries[0])
	}
	if feed.TotalEarned != 350 || feed.TotalRedeemed != 500 || feed.Net != -150 {
		t.Errorf("totals = %d/%d/%d", feed.TotalEarned, feed.TotalRedeemed, feed.Net)
	}

	earned := Activity(entries, TabEarned)
	if len(earned.Entries) != 2 || earned.TotalRedeemed != 500 {
		t.Errorf("earned tab = %+v", earned)
	}
	if entries[0].Description != "Purchase reward" {
		t.Error("input order was modified")
	}

	if got := Recent(entries, 1); len(got) != 1 || got[0].Points != 500 {
		t.Errorf("recent = %+v", got)
	}
}

func TestParseTab(t *testing.T) {
	if tab, err := ParseTab(" Earned "); err != nil || tab != TabEarned {
		t.Errorf("ParseTab = %v, %v", tab, err)
	}
	if tab, _ := ParseTab(""); tab != TabAll {
		t.Errorf("empty tab = %v", tab)
	}
	if _, err := ParseTab("pending"); !apperr.Is(err, apperr.Validation) {
		t.Errorf("err = %v", err)
	}
}

func unlockedAchievements(v ProfileView) []string {
	var ids []string
	for _, a := range v.Achievements {
		if a.Unlocked {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func unlockedTiers(v ProfileView) []string {
	var names []string
	for _, r := range v.Tiers {
		if r.Unlocked {
			names = append(names, r.Name)
		}
	}
	return names
}

func repeatEntry(e models.ActivityEntry, n int) []models.ActivityEntry {
	out := make([]models.ActivityEntry, n)
	for i := range out {
		out[i] = e
	}
	return out
}

func TestProfile(t *testing.T) {
	joined := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	now := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	member := models.Account{ID: "acct-001", Name: "Alex Johnson", CreatedDate: joined}

	veteran := []models.ActivityEntry{
		models.Earned(15000, "Bulk order", "Shopping", now),
		models.Earned(750, "Referral bonus", "Referral", now),
		models.Redeemed(12000, "Annual Membership", "Redemption", now),
		models.Redeemed(1300, "Voucher", "Redemption", now),
	}
	busy := append(
		repeatEntry(models.Earned(100, "Referral bonus", "Referral", now), 5),
		repeatEntry(models.Redeemed(10, "Sticker", "Redemption", now), 20)...,
	)

	tests := []struct {
		name             string
		account          models.Account
		points           int
		entries          []models.ActivityEntry
		earned, redeemed int
		current          string
		tiers            []string
		achievements     []string
	}{
		{
			name:     "new member",
			account:  models.Account{ID: "acct-002"},
			current:  "Bronze",
			tiers:    []string{"Bronze"},
			earned:   0,
			redeemed: 0,
		},
		{
			name:         "long-standing member",
			account:      member,
			points:       2450,
			entries:      veteran,
			earned:       15750,
			redeemed:     13300,
			current:      "Silver",
			tiers:        []string{"Bronze", "Silver", "Gold", "Platinum"},
			achievements: []string{"first-redemption", "point-collector", "loyal-member", "gold-status"},
		},
		{
			name:         "frequent referrer and redeemer",
			account:      models.Account{ID: "acct-003", CreatedDate: now.AddDate(0, -1, 0)},
			points:       300,
			entries:      busy,
			earned:       500,
			redeemed:     200,
			current:      "Bronze",
			tiers:        []string{"Bronze"},
			achievements: []string{"first-redemption", "referral-master", "big-spender"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Profile(tt.account, tt.points, tt.entries, now)
			if v.LifetimeEarned != tt.earned || v.LifetimeRedeemed != tt.redeemed {
				t.Errorf("lifetime = %d/%d, want %d/%d", v.LifetimeEarned, v.LifetimeRedeemed, tt.earned, tt.redeemed)
			}
			if v.CurrentTier.Name != tt.current {
				t.Errorf("current tier = %s, want %s", v.CurrentTier.Name, tt.current)
			}
			if got := unlockedTiers(v); !reflect.DeepEqual(got, tt.tiers) {
				t.Errorf("unlocked tiers = %v, want %v", got, tt.tiers)
			}
			if got := unlockedAchievements(v); !reflect.DeepEqual(got, tt.achievements) {
				t.Errorf("achievements = %v, want %v", got, tt.achievements)
			}
			currents := 0
			for _, r := range v.Tiers {
				if r.Current {
					currents++
					if r.Name != tt.current {
						t.Errorf("rung %s flagged current", r.Name)
					}
				}
			}
			if currents != 1 {
				t.Errorf("%d rungs flagged current, want 1", currents)
			}
		})
	}
}

func TestProfileMemberSince(t *testing.T) {
	joined := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	account := models.Account{ID: "acct-001", CreatedDate: joined}
	sixMonths := joined.AddDate(0, 6, 0)

	tests := []struct {
		now  time.Time
		want bool
	}{
		{sixMonths.Add(-time.Second), false},
		{sixMonths, true},
		{sixMonths.AddDate(1, 0, 0), true},
	}
	for _, tt := range tests {
		v := Profile(account, 0, nil, tt.now)
		if v.MemberSince == nil || !v.MemberSince.Equal(joined) {
			t.Fatalf("member since = %v", v.MemberSince)
		}
		var loyal bool
		for _, a := range v.Achievements {
			if a.ID == "loyal-member" {
				loyal = a.Unlocked
			}
		}
		if loyal != tt.want {
			t.Errorf("at %v loyal-member = %v, want %v", tt.now, loyal, tt.want)
		}
	}

	if v := Profile(models.Account{ID: "acct-002"}, 0, nil, sixMonths); v.MemberSince != nil {
		t.Errorf("member since = %v, want nil without a created date", v.MemberSince)
	}
}
