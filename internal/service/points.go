package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/matthieukhl/loyaltydesk/internal/actions"
	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
)

// PointsResult is the outcome of any action that moves points.
type PointsResult struct {
	Points  int    `json:"points"`
	Balance int    `json:"balance"`
	Message string `json:"message"`
}

// RedeemResult adds the redeemed reward.
type RedeemResult struct {
	PointsResult
	Reward models.RewardCatalogItem `json:"reward"`
}

// Redeem spends points on a catalog reward and emails a confirmation when
// the account has an address. A failed email does not undo the redemption.
func (l *Loyalty) Redeem(ctx context.Context, rewardID string) (RedeemResult, error) {
	reward, err := l.Reward(ctx, rewardID)
	if err != nil {
		return RedeemResult{}, err
	}
	account, balance, err := l.Balance(ctx)
	if err != nil {
		return RedeemResult{}, err
	}
	if balance < reward.Points {
		return RedeemResult{}, apperr.ValidationErr("You don't have enough points for this reward.",
			map[string]string{"points": fmt.Sprintf("Needs %d, available %d.", reward.Points, balance)})
	}

	entry := models.Redeemed(reward.Points, reward.Title, "Redemption", l.now())
	entry.Reference = "reward:" + reward.ID
	if err := l.record(ctx, entry); err != nil {
		return RedeemResult{}, err
	}

	msg := fmt.Sprintf("%s has been added to your account. Check your email for details.", reward.Title)
	if to := l.recipient(account); to != "" {
		body := fmt.Sprintf("You redeemed %s (%s) for %d points.\nRemaining balance: %d points.",
			reward.Title, reward.SKU, reward.Points, balance-reward.Points)
		if err := l.notifier.SendEmail(ctx, to, "Reward redeemed: "+reward.Title, body); err != nil {
			l.logger.Warn("failed to send redemption email", "to", to, "error", err)
		}
	}

	return RedeemResult{
		PointsResult: PointsResult{Points: reward.Points, Balance: balance - reward.Points, Message: msg},
		Reward:       reward,
	}, nil
}

func (l *Loyalty) recipient(account models.Account) string {
	if l.cfg.AccountEmail != "" {
		return l.cfg.AccountEmail
	}
	return account.Email
}

// TransferResult adds the currency value of a bank transfer.
type TransferResult struct {
	PointsResult
	Amount float64 `json:"amount"`
}

// TransferPoints converts points to a bank transfer. The minimum and the
// conversion rate come from configuration.
func (l *Loyalty) TransferPoints(ctx context.Context, points int) (TransferResult, error) {
	if points <= 0 || points < l.cfg.MinTransferPoints {
		return TransferResult{}, apperr.ValidationErr(fmt.Sprintf("Minimum transfer is %d points", l.cfg.MinTransferPoints),
			map[string]string{"points": "Invalid Amount"})
	}
	_, balance, err := l.Balance(ctx)
	if err != nil {
		return TransferResult{}, err
	}
	if points > balance {
		return TransferResult{}, apperr.ValidationErr("You don't have enough points for this transfer",
			map[string]string{"points": "Insufficient Points"})
	}

	rate := l.cfg.PointsPerCurrencyUnit
	if rate <= 0 {
		rate = 1
	}
	amount := models.RoundCents(float64(points) / float64(rate))

	entry := models.Redeemed(points, "Bank transfer", "Transfer", l.now())
	entry.Reference = "transfer"
	if err := l.record(ctx, entry); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{
		PointsResult: PointsResult{
			Points:  points,
			Balance: balance - points,
			Message: fmt.Sprintf("%d points (₹%.2f) will be transferred to your bank account within 3-5 business days", points, amount),
		},
		Amount: amount,
	}, nil
}

// Scan awards the points of a scanned product code.
func (l *Loyalty) Scan(ctx context.Context, code string) (PointsResult, error) {
	product, ok := actions.LookupScan(l.catalog.Scannables, code)
	if !ok {
		return PointsResult{}, apperr.NotFoundErr("This code doesn't match a rewards product.")
	}

	entry := models.Earned(product.Points, "Scanned "+product.Name, "Scan", l.now())
	entry.Reference = "scan:" + product.Code
	return l.award(ctx, entry, fmt.Sprintf("You earned %d points for %s", product.Points, product.Name))
}

// SurveyQuestions returns the survey in order.
func (l *Loyalty) SurveyQuestions() []models.SurveyQuestion {
	return append([]models.SurveyQuestion(nil), l.catalog.SurveyQuestions...)
}

// NewSurvey starts a wizard over the survey questions.
func (l *Loyalty) NewSurvey() (*actions.Wizard, error) {
	return actions.NewWizard(l.SurveyQuestions())
}

// CompleteSurvey awards the survey points for a finished wizard.
func (l *Loyalty) CompleteSurvey(ctx context.Context, w *actions.Wizard) (PointsResult, error) {
	if w == nil || !w.Done() {
		return PointsResult{}, apperr.ValidationErr("Please answer every question.", nil)
	}
	entry := models.Earned(l.cfg.SurveyPoints, "Survey completed", "Survey", l.now())
	entry.Reference = "survey"
	return l.award(ctx, entry, actions.CompletionMessage(l.cfg.SurveyPoints))
}

// SubmitSurvey answers a fresh wizard from answers keyed by question id and
// completes it.
func (l *Loyalty) SubmitSurvey(ctx context.Context, answers map[string]string) (PointsResult, error) {
	w, err := l.NewSurvey()
	if err != nil {
		return PointsResult{}, apperr.Wrap(err)
	}
	if err := w.Fill(answers); err != nil {
		q, _ := w.Current()
		msg := "Select one of the options."
		if errors.Is(err, actions.ErrUnanswered) {
			msg = "This question needs an answer."
		}
		return PointsResult{}, apperr.ValidationErr("Please answer every question.", map[string]string{q.ID: msg})
	}
	return l.CompleteSurvey(ctx, w)
}

func (l *Loyalty) award(ctx context.Context, entry models.ActivityEntry, msg string) (PointsResult, error) {
	if err := l.record(ctx, entry); err != nil {
		return PointsResult{}, err
	}
	_, balance, err := l.Balance(ctx)
	if err != nil {
		return PointsResult{}, err
	}
	return PointsResult{Points: entry.Points, Balance: balance, Message: msg}, nil
}

// Referral draws a referral code and, when phone is set, texts the share
// message to it.
func (l *Loyalty) Referral(ctx context.Context, phone string) (actions.Referral, error) {
	l.randMu.Lock()
	ref := actions.NewReferral(l.rand, l.cfg.ReferralBaseURL)
	l.randMu.Unlock()

	if phone == "" {
		return ref, nil
	}
	if err := l.notifier.SendSMS(ctx, phone, ref.Message); err != nil {
		return ref, apperr.FetchErr("Could not send the referral message.", err)
	}
	l.logger.Info("referral shared", "code", ref.Code)
	return ref, nil
}
