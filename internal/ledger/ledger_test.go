package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/matthieukhl/loyaltydesk/internal/database"
	"github.com/matthieukhl/loyaltydesk/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(&database.DB{DB: db}), mock
}

var at = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRecordActivity(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO ledger_activities").
		WithArgs("acct-001", "redeemed", 1000, "$10 Gift Card", "Redemption", "reward:1", at).
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := store.RecordActivity(context.Background(), models.ActivityEntry{
		AccountID: "acct-001", Kind: models.ActivityRedeemed, Points: 1000,
		Description: "$10 Gift Card", Category: "Redemption", Reference: "reward:1", OccurredAt: at,
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != 42 {
		t.Errorf("id = %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRecordActivityRejectsNonPositivePoints(t *testing.T) {
	store, mock := newMockStore(t)
	if _, err := store.RecordActivity(context.Background(), models.ActivityEntry{Points: 0}); err == nil {
		t.Fatal("expected an error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListActivities(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "account_id", "kind", "points", "description", "category", "reference", "occurred_at"}).
		AddRow(2, "acct-001", "earned", 150, "Scanned TileFlex Plus", "Scan", "scan:LAT-TFP", at).
		AddRow(1, "acct-001", "redeemed", 500, "Express Delivery", "Redemption", "reward:7", at.Add(-time.Hour))
	mock.ExpectQuery("SELECT (.+) FROM ledger_activities").
		WithArgs("acct-001", 10).
		WillReturnRows(rows)

	got, err := store.ListActivities(context.Background(), "acct-001", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Kind != models.ActivityEarned || got[1].SignedAmount() != -500 {
		t.Errorf("activities = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAdjustment(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT SUM").WithArgs("acct-001").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(-350))
	mock.ExpectQuery("SELECT SUM").WithArgs("acct-002").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))

	if got, err := store.Adjustment(context.Background(), "acct-001"); err != nil || got != -350 {
		t.Errorf("Adjustment = %d, %v", got, err)
	}
	if got, err := store.Adjustment(context.Background(), "acct-002"); err != nil || got != 0 {
		t.Errorf("empty Adjustment = %d, %v", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSubmissions(t *testing.T) {
	store, mock := newMockStore(t)
	payload := []byte(`{"orderId":"order-003","dealerId":"dealer-002"}`)
	mock.ExpectExec("INSERT INTO ledger_submissions").
		WithArgs("acct-001", models.SubmissionConversion, "rec-1", "CR-1234", "Pending", string(payload)).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("SELECT (.+) FROM ledger_submissions").
		WithArgs("acct-001", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "kind", "record_id", "number", "status", "payload", "created_at"}).
			AddRow(7, "acct-001", "conversion", "rec-1", "CR-1234", "Pending", payload, at))

	id, err := store.RecordSubmission(context.Background(), models.Submission{
		AccountID: "acct-001", Kind: models.SubmissionConversion, RecordID: "rec-1",
		Number: "CR-1234", Status: "Pending", Payload: payload,
	})
	if err != nil || id != 7 {
		t.Fatalf("RecordSubmission = %d, %v", id, err)
	}
	subs, err := store.ListSubmissions(context.Background(), "acct-001", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || subs[0].Number != "CR-1234" || string(subs[0].Payload) != string(payload) {
		t.Errorf("submissions = %+v", subs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ledger_activities").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ledger_submissions").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := (&database.DB{DB: db}).Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("acct-001", []models.ActivityEntry{
		{ID: 1, Kind: models.ActivityEarned, Points: 150, Description: "Purchase reward", OccurredAt: at.Add(-48 * time.Hour)},
		{ID: 2, Kind: models.ActivityRedeemed, Points: 500, Description: "$10 Gift Card", OccurredAt: at.Add(-24 * time.Hour)},
	})
	m.now = func() time.Time { return at }

	if adj, _ := m.Adjustment(ctx, "acct-001"); adj != 0 {
		t.Errorf("seeded history must not adjust the balance, got %d", adj)
	}

	id, err := m.RecordActivity(ctx, models.Earned(200, "Scanned SpectraLOCK Pro", "Scan", time.Time{}).WithAccount("acct-001"))
	if err != nil {
		t.Fatal(err)
	}
	if id != 3 {
		t.Errorf("id = %d", id)
	}
	_, _ = m.RecordActivity(ctx, models.Redeemed(50, "Donation", "Redemption", at).WithAccount("acct-001"))

	if adj, _ := m.Adjustment(ctx, "acct-001"); adj != 150 {
		t.Errorf("adjustment = %d, want 150", adj)
	}
	list, _ := m.ListActivities(ctx, "acct-001", 2)
	if len(list) != 2 || list[0].OccurredAt != at {
		t.Errorf("list = %+v", list)
	}
	if other, _ := m.ListActivities(ctx, "acct-999", 0); len(other) != 0 {
		t.Errorf("other account sees %d entries", len(other))
	}

	_, _ = m.RecordSubmission(ctx, models.Submission{AccountID: "acct-001", RecordID: "a"})
	_, _ = m.RecordSubmission(ctx, models.Submission{AccountID: "acct-001", RecordID: "b"})
	subs, _ := m.ListSubmissions(ctx, "acct-001", 1)
	if len(subs) != 1 || subs[0].RecordID != "b" {
		t.Errorf("submissions = %+v", subs)
	}
}
