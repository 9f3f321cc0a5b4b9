package service

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/views"
)

// lifetimeLimit bounds the activity scan behind lifetime totals.
const lifetimeLimit = 10000

// Profile loads the balance and the whole activity feed concurrently and
// derives lifetime totals, the tier ladder and achievements from them.
func (l *Loyalty) Profile(ctx context.Context) (views.ProfileView, error) {
	var (
		account models.Account
		points  int
		entries []models.ActivityEntry
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		account, points, err = l.Balance(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		entries, err = l.activities.ListActivities(ctx, l.cfg.AccountID, lifetimeLimit)
		return err
	})
	if err := p.Wait(); err != nil {
		return views.ProfileView{}, err
	}
	return views.Profile(account, points, entries, l.now()), nil
}
