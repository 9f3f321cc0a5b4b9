package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/config"
	"github.com/matthieukhl/loyaltydesk/internal/ledger"
	"github.com/matthieukhl/loyaltydesk/internal/mockdata"
	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/retry"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	to, subject, body string
}

type fakeNotifier struct {
	sms    []sentMessage
	emails []sentMessage
	err    error
}

func (f *fakeNotifier) SendSMS(_ context.Context, phone, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sms = append(f.sms, sentMessage{to: phone, body: message})
	return nil
}

func (f *fakeNotifier) SendEmail(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.emails = append(f.emails, sentMessage{to: to, subject: subject, body: body})
	return nil
}

type fixture struct {
	svc      *Loyalty
	source   *mockdata.Client
	ledger   *ledger.Memory
	notifier *fakeNotifier
}

func loyaltyConfig() config.LoyaltyConfig {
	return config.LoyaltyConfig{
		AccountID:             "acct-001",
		SurveyPoints:          300,
		ReferralBaseURL:       "https://rewards.example.com",
		MinTransferPoints:     1000,
		PointsPerCurrencyUnit: 10,
	}
}

func newFixture(t *testing.T, mockOpts mockdata.Options) fixture {
	t.Helper()
	data, err := mockdata.Load()
	if err != nil {
		t.Fatal(err)
	}
	mockOpts.Now = func() time.Time { return fixedNow }
	if mockOpts.Seed == 0 {
		mockOpts.Seed = 42
	}
	source := mockdata.NewClient(data, mockOpts)
	mem := ledger.NewMemory("acct-001", data.Activities)
	n := &fakeNotifier{}
	svc := New(Options{
		Source:      source,
		Activities:  mem,
		Submissions: mem,
		Notifier:    n,
		Catalog:     data,
		Config:      loyaltyConfig(),
		Logger:      slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Rand:        rand.New(rand.NewPCG(1, 2)),
		Now:         func() time.Time { return fixedNow },
	})
	return fixture{svc: svc, source: source, ledger: mem, notifier: n}
}

func TestProfile(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	ctx := context.Background()

	if _, err := f.svc.Redeem(ctx, "7"); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	view, err := f.svc.Profile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.LifetimeEarned != 1150 || view.LifetimeRedeemed != 2000 || view.Redemptions != 3 {
		t.Errorf("lifetime = %d/%d over %d redemptions", view.LifetimeEarned, view.LifetimeRedeemed, view.Redemptions)
	}
	if view.Points != 1950 || view.CurrentTier.Name != "Silver" {
		t.Errorf("points = %d tier = %s", view.Points, view.CurrentTier.Name)
	}
	if view.MemberSince == nil || view.MemberSince.Year() != 2024 {
		t.Errorf("member since = %v", view.MemberSince)
	}
	unlocked := map[string]bool{}
	for _, a := range view.Achievements {
		unlocked[a.ID] = a.Unlocked
	}
	if !unlocked["first-redemption"] || unlocked["loyal-member"] || unlocked["gold-status"] {
		t.Errorf("achievements = %+v", view.Achievements)
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	view, err := f.svc.Dashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if view.Points != 2450 {
		t.Errorf("points = %d", view.Points)
	}
	if view.Standing.Current.Name != "Silver" || view.Standing.PointsToNext != 550 {
		t.Errorf("standing = %+v", view.Standing)
	}
	if len(view.Recent) != 3 || view.Recent[0].Description != "Purchase reward" {
		t.Errorf("recent = %+v", view.Recent)
	}
}

func TestHistoryTabs(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	feed, err := f.svc.History(context.Background(), "redeemed")
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Entries) != 2 {
		t.Errorf("redeemed entries = %d", len(feed.Entries))
	}
	if feed.TotalEarned != 1150 || feed.TotalRedeemed != 1500 {
		t.Errorf("totals = %d/%d", feed.TotalEarned, feed.TotalRedeemed)
	}
	if _, err := f.svc.History(context.Background(), "bogus"); !apperr.Is(err, apperr.Validation) {
		t.Errorf("err = %v", err)
	}
}

func TestCatalog(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	all := f.svc.Catalog(context.Background(), "all", "")
	if len(all.Items) != 8 || all.Categories[0] != "all" {
		t.Errorf("catalog = %d items, categories %v", len(all.Items), all.Categories)
	}
	gift := f.svc.Catalog(context.Background(), "giftcards", "")
	for _, it := range gift.Items {
		if it.Category != "giftcards" {
			t.Errorf("item %s in wrong category", it.ID)
		}
	}
}

func TestProductCatalogPrices(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	products, err := f.svc.ProductCatalog(context.Background(), "", "spectralock")
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 || products[0].UnitPrice != 198.45 {
		t.Errorf("products = %+v", products)
	}
}

func TestSubmitConversionRequiresBothSelections(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	_, err := f.svc.SubmitConversion(context.Background(), "order-003", " ")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Validation || ae.PublicMsg != "Please select both Order Number and Dealer Name" {
		t.Fatalf("err = %v", err)
	}
	if _, ok := ae.Fields["dealerId"]; !ok {
		t.Error("missing dealerId field")
	}
	if subs, _ := f.svc.Submissions(context.Background(), 0); len(subs) != 0 {
		t.Error("nothing should be audited")
	}
}

func TestSubmitConversion(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	res, err := f.svc.SubmitConversion(context.Background(), "order-003", "dealer-002")
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusValue != "Pending" || !regexp.MustCompile(`^CR-\d{4}$`).MatchString(res.RequestNumber) {
		t.Errorf("result = %+v", res)
	}
	if res.Confirmation != "Conversion Request "+res.RequestNumber+" created successfully" {
		t.Errorf("confirmation = %q", res.Confirmation)
	}

	subs, _ := f.svc.Submissions(context.Background(), 0)
	if len(subs) != 1 || subs[0].Number != res.RequestNumber || !strings.Contains(string(subs[0].Payload), "dealer-002") {
		t.Errorf("submissions = %+v", subs)
	}

	list, err := f.svc.ConversionRequests(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if list[0].Name != res.RequestNumber {
		t.Errorf("newest request = %s", list[0].Name)
	}
}

func TestSubmitConversionDomainFailure(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	_, err := f.svc.SubmitConversion(context.Background(), "order-404", "dealer-002")
	if !apperr.Is(err, apperr.Domain) {
		t.Fatalf("err = %v", err)
	}
}

func TestConversionLookupsRetried(t *testing.T) {
	f := newFixture(t, mockdata.Options{FailureRate: 1})
	f.svc.retry = retry.Policy{MaxRetries: 2, Delay: time.Millisecond}
	_, err := f.svc.ConversionLookups(context.Background())
	if !apperr.Is(err, apperr.Fetch) {
		t.Fatalf("err = %v", err)
	}

	ok := newFixture(t, mockdata.Options{})
	lookups, err := ok.svc.ConversionLookups(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(lookups.Orders) != 5 || len(lookups.Dealers) != 5 || len(lookups.StatusValues) != 4 {
		t.Errorf("lookups = %+v", lookups)
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	res, err := f.svc.CreateOrder(context.Background(), models.OrderDraft{
		Lines: []models.OrderDraftLine{{ProductID: "prod-spectralock", Quantity: 12}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.EstimatedTotal != 2381.40 {
		t.Errorf("estimated total = %v", res.Summary.EstimatedTotal)
	}
	if res.OrderNumber != "ORD-2024-006" {
		t.Errorf("order number = %s", res.OrderNumber)
	}

	_, err = f.svc.CreateOrder(context.Background(), models.OrderDraft{
		Lines: []models.OrderDraftLine{{ProductID: "prod-spectralock", Quantity: 0}},
	})
	if !apperr.Is(err, apperr.Validation) {
		t.Errorf("zero quantity: err = %v", err)
	}
}

func TestRedeem(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	res, err := f.svc.Redeem(context.Background(), "1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Points != 1000 || res.Balance != 1450 {
		t.Errorf("result = %+v", res)
	}
	if _, balance, _ := f.svc.Balance(context.Background()); balance != 1450 {
		t.Errorf("balance after redeem = %d", balance)
	}
	if len(f.notifier.emails) != 1 || !strings.Contains(f.notifier.emails[0].subject, res.Reward.Title) {
		t.Errorf("emails = %+v", f.notifier.emails)
	}

	if _, err := f.svc.Redeem(context.Background(), "8"); !apperr.Is(err, apperr.Validation) {
		t.Errorf("unaffordable reward: err = %v", err)
	}
	if _, err := f.svc.Redeem(context.Background(), "99"); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("unknown reward: err = %v", err)
	}
}

func TestRedeemSurvivesEmailFailure(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	f.notifier.err = errors.New("ses down")
	if _, err := f.svc.Redeem(context.Background(), "1"); err != nil {
		t.Fatalf("redeem should not fail on email errors: %v", err)
	}
}

func TestTransferPoints(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	tests := []struct {
		points int
		kind   apperr.Kind
	}{
		{0, apperr.Validation},
		{999, apperr.Validation},
		{5000, apperr.Validation},
	}
	for _, tt := range tests {
		if _, err := f.svc.TransferPoints(context.Background(), tt.points); !apperr.Is(err, tt.kind) {
			t.Errorf("TransferPoints(%d) err = %v", tt.points, err)
		}
	}

	res, err := f.svc.TransferPoints(context.Background(), 1500)
	if err != nil {
		t.Fatal(err)
	}
	if res.Amount != 150 || res.Balance != 950 {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Message, "₹150.00") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestScan(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	res, err := f.svc.Scan(context.Background(), "lat-slp")
	if err != nil {
		t.Fatal(err)
	}
	if res.Points != 200 || res.Balance != 2650 {
		t.Errorf("result = %+v", res)
	}
	feed, _ := f.svc.History(context.Background(), "earned")
	if feed.Entries[0].Category != "Scan" {
		t.Errorf("newest earned = %+v", feed.Entries[0])
	}
	if _, err := f.svc.Scan(context.Background(), "nope"); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestSubmitSurvey(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	answers := map[string]string{}
	for _, q := range f.svc.SurveyQuestions() {
		answers[q.ID] = q.Options[0]
	}

	partial := map[string]string{"satisfaction": answers["satisfaction"]}
	_, err := f.svc.SubmitSurvey(context.Background(), partial)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Validation || ae.Fields["frequency"] == "" {
		t.Fatalf("partial survey: err = %v", err)
	}

	res, err := f.svc.SubmitSurvey(context.Background(), answers)
	if err != nil {
		t.Fatal(err)
	}
	if res.Points != 300 || res.Balance != 2750 {
		t.Errorf("result = %+v", res)
	}
	if res.Message != "Thank you! You earned 300 points for completing the survey." {
		t.Errorf("message = %q", res.Message)
	}
}

func TestReferral(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	ref, err := f.svc.Referral(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if !regexp.MustCompile(`^MYK-[0-9A-Z]{6}$`).MatchString(ref.Code) {
		t.Errorf("code = %s", ref.Code)
	}
	if len(f.notifier.sms) != 0 {
		t.Error("no sms without a phone")
	}

	ref, err = f.svc.Referral(context.Background(), "+12065550100")
	if err != nil {
		t.Fatal(err)
	}
	if len(f.notifier.sms) != 1 || f.notifier.sms[0].body != ref.Message {
		t.Errorf("sms = %+v", f.notifier.sms)
	}

	f.notifier.err = errors.New("sns down")
	if _, err := f.svc.Referral(context.Background(), "+1"); !apperr.Is(err, apperr.Fetch) {
		t.Errorf("err = %v", err)
	}
}

func TestCoverage(t *testing.T) {
	f := newFixture(t, mockdata.Options{})
	products := f.svc.CoverageProducts()
	if len(products) == 0 {
		t.Fatal("no coverage products")
	}
	est, ok, err := f.svc.Coverage(10, 10, strings.ToUpper(products[0].Name))
	if err != nil || !ok || est.Units <= 0 {
		t.Errorf("estimate = %+v, %v, %v", est, ok, err)
	}
	if _, ok, _ := f.svc.Coverage(0, 10, products[0].Name); ok {
		t.Error("zero length must not estimate")
	}
	if _, _, err := f.svc.Coverage(10, 10, "unknown"); !apperr.Is(err, apperr.Validation) {
		t.Errorf("err = %v", err)
	}
}
