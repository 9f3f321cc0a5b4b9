// Package service implements the loyalty pages on top of a data source, the
// ledger and the notification and asset helpers.
package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/matthieukhl/loyaltydesk/internal/config"
	"github.com/matthieukhl/loyaltydesk/internal/mockdata"
	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/retry"
	"github.com/matthieukhl/loyaltydesk/internal/types"
	"github.com/matthieukhl/loyaltydesk/internal/views"
)

const (
	recentActivities = 3
	historyLimit     = 200
)

// ImageResolver turns catalog image references into URLs
type ImageResolver interface {
	URL(ctx context.Context, ref string) (string, error)
}

type Options struct {
	Source      types.DataSource
	Activities  types.ActivitySource
	Submissions types.SubmissionLog
	Notifier    types.Notifier
	Images      ImageResolver
	// Catalog provides the rewards, calculator, scan and survey tables.
	Catalog *mockdata.Fixtures
	Config  config.LoyaltyConfig
	// Retry wraps whole page loads. Leave zero when the source retries on
	// its own.
	Retry  retry.Policy
	Logger *slog.Logger
	Rand   *rand.Rand
	Now    func() time.Time
}

// Loyalty serves every page of the rewards app
type Loyalty struct {
	source      types.DataSource
	activities  types.ActivitySource
	submissions types.SubmissionLog
	notifier    types.Notifier
	images      ImageResolver
	catalog     *mockdata.Fixtures
	cfg         config.LoyaltyConfig
	retry       retry.Policy
	logger      *slog.Logger
	now         func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

func New(opts Options) *Loyalty {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		seed := uint64(opts.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return &Loyalty{
		source:      opts.Source,
		activities:  opts.Activities,
		submissions: opts.Submissions,
		notifier:    opts.Notifier,
		images:      opts.Images,
		catalog:     opts.Catalog,
		cfg:         opts.Config,
		retry:       opts.Retry,
		logger:      opts.Logger,
		now:         opts.Now,
		rand:        opts.Rand,
	}
}

// SourceName reports which data source is in use.
func (l *Loyalty) SourceName() string {
	return l.source.Name()
}

// Balance returns the account and its spendable points: the CRM balance plus
// whatever was earned or redeemed locally.
func (l *Loyalty) Balance(ctx context.Context) (models.Account, int, error) {
	account, err := l.source.Account(ctx, l.cfg.AccountID)
	if err != nil {
		return models.Account{}, 0, err
	}
	adj, err := l.activities.Adjustment(ctx, account.ID)
	if err != nil {
		return models.Account{}, 0, err
	}
	return account, int(account.TotalRewardPoints) + adj, nil
}

// DashboardView is the home page
type DashboardView struct {
	Account  models.Account       `json:"account"`
	Points   int                  `json:"points"`
	Standing views.TierStanding   `json:"standing"`
	Recent   []views.ActivityLine `json:"recent"`
}

// Dashboard loads balance and recent activity concurrently.
func (l *Loyalty) Dashboard(ctx context.Context) (DashboardView, error) {
	var (
		view    DashboardView
		entries []models.ActivityEntry
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		account, points, err := l.Balance(ctx)
		view.Account, view.Points = account, points
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		entries, err = l.activities.ListActivities(ctx, l.cfg.AccountID, historyLimit)
		return err
	})
	if err := p.Wait(); err != nil {
		return DashboardView{}, err
	}

	view.Standing = views.Standing(view.Points)
	view.Recent = views.Recent(entries, recentActivities)
	return view, nil
}

// History is the transactions page for a tab.
func (l *Loyalty) History(ctx context.Context, tab string) (views.ActivityFeed, error) {
	t, err := views.ParseTab(tab)
	if err != nil {
		return views.ActivityFeed{}, err
	}
	entries, err := l.activities.ListActivities(ctx, l.cfg.AccountID, historyLimit)
	if err != nil {
		return views.ActivityFeed{}, err
	}
	return views.Activity(entries, t), nil
}

// Submissions lists the records created through this service.
func (l *Loyalty) Submissions(ctx context.Context, limit int) ([]models.Submission, error) {
	return l.submissions.ListSubmissions(ctx, l.cfg.AccountID, limit)
}

func (l *Loyalty) record(ctx context.Context, e models.ActivityEntry) error {
	e.AccountID = l.cfg.AccountID
	if e.OccurredAt.IsZero() {
		e.OccurredAt = l.now()
	}
	_, err := l.activities.RecordActivity(ctx, e)
	return err
}

func (l *Loyalty) audit(ctx context.Context, s models.Submission) {
	s.AccountID = l.cfg.AccountID
	if _, err := l.submissions.RecordSubmission(ctx, s); err != nil {
		l.logger.Warn("failed to audit submission", "kind", s.Kind, "record_id", s.RecordID, "error", err)
	}
}
