package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"credshield-go/internal/models"
	"credshield-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	testBorrower = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testMerchant = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testNow      = time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
)

func newTestLoan(borrower common.Address) *models.Loan {
	return &models.Loan{
		Borrower:          borrower,
		Principal:         decimal.NewFromInt(900),
		TotalAmount:       decimal.NewFromInt(936),
		RemainingAmount:   decimal.NewFromInt(936),
		CollateralAmount:  decimal.NewFromInt(675),
		InstallmentAmount: decimal.NewFromInt(312),
		TotalInstallments: 3,
		NextDueAt:         testNow.Add(720 * time.Hour),
		InterestRateBps:   400,
		Active:            true,
		CreatedAt:         testNow,
	}
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	boom := errors.New("boom")

	err := service.RunInTx(ctx, func(tx store.LedgerTx) error {
		if _, err := tx.Post(ctx, store.Posting{AccountId: store.AccountPoolDeposits, EntryType: "liquidity-deposit", Amount: decimal.NewFromInt(5), Reference: "x"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected callback error, got %v", err)
	}

	balance, err := service.GetAccountBalance(ctx, store.AccountPoolDeposits)
	if err != nil {
		t.Fatalf("GetAccountBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("Expected rolled back balance 0, got %s", balance.String())
	}
}

func TestProfile_InsertGetUpdate(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	hash := common.HexToHash("0xabcdef")

	err := service.RunInTx(ctx, func(tx store.LedgerTx) error {
		if _, err := tx.GetProfile(ctx, testBorrower); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound before insert, got %v", err)
		}

		p := &models.CreditProfile{
			Address:            testBorrower,
			Score:              700,
			Tier:               models.TierGold,
			CollateralRatioBps: 7500,
			CreditLimit:        models.ToWei(decimal.NewFromInt(2000)),
			InterestRateBps:    400,
			TotalBorrowed:      decimal.Zero,
			TotalRepaid:        decimal.Zero,
			ReportHash:         hash,
			CreatedAt:          testNow,
			UpdatedAt:          testNow,
		}
		if err := tx.InsertProfile(ctx, p); err != nil {
			return err
		}

		got, err := tx.GetProfile(ctx, testBorrower)
		if err != nil {
			return err
		}
		if got.Score != 700 || got.Tier != models.TierGold || got.ReportHash != hash || got.Address != testBorrower {
			t.Errorf("Unexpected profile: %+v", got)
		}
		if !got.CreditLimit.Equal(models.ToWei(decimal.NewFromInt(2000))) {
			t.Errorf("Expected credit limit 2000e18, got %s", got.CreditLimit.String())
		}
		if !got.CreatedAt.Equal(testNow) {
			t.Errorf("Expected created_at %v, got %v", testNow, got.CreatedAt)
		}

		got.Score = 715
		if err := tx.UpdateProfile(ctx, got); err != nil {
			return err
		}
		if got.Version != 2 {
			t.Errorf("Expected version 2 after update, got %d", got.Version)
		}

		// A stale copy fails optimistic locking
		p.Score = 1
		if err := tx.UpdateProfile(ctx, p); !errors.Is(err, store.ErrConcurrentModification) {
			t.Errorf("Expected ErrConcurrentModification, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}
}

func TestHistory_InsertGetUpdate(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	err := service.RunInTx(ctx, func(tx store.LedgerTx) error {
		h := &models.CreditHistory{
			Address:       testBorrower,
			Score:         600,
			Tier:          models.TierSilver,
			TotalBorrowed: decimal.Zero,
			TotalRepaid:   decimal.Zero,
			FirstCreditAt: testNow,
			UpdatedAt:     testNow,
		}
		if err := tx.InsertHistory(ctx, h); err != nil {
			return err
		}
		h.CurrentStreak, h.LongestStreak = 2, 2
		h.TotalRepaid = decimal.NewFromInt(42)
		if err := tx.UpdateHistory(ctx, h); err != nil {
			return err
		}

		got, err := tx.GetHistory(ctx, testBorrower)
		if err != nil {
			return err
		}
		if got.CurrentStreak != 2 || got.LongestStreak != 2 || got.Version != 2 {
			t.Errorf("Unexpected history: %+v", got)
		}
		if !got.TotalRepaid.Equal(decimal.NewFromInt(42)) {
			t.Errorf("Expected total repaid 42, got %s", got.TotalRepaid.String())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}
}

func TestLoans_SingleActivePerBorrower(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	err := service.RunInTx(ctx, func(tx store.LedgerTx) error {
		first := newTestLoan(testBorrower)
		if err := tx.InsertLoan(ctx, first); err != nil {
			return err
		}
		if first.Id != 1 {
			t.Errorf("Expected sequential id 1, got %d", first.Id)
		}

		// The partial unique index rejects a second active loan
		if err := tx.InsertLoan(ctx, newTestLoan(testBorrower)); !errors.Is(err, store.ErrDuplicateEntry) {
			t.Errorf("Expected ErrDuplicateEntry for second active loan, got %v", err)
		}

		closed := testNow.Add(time.Hour)
		first.Active = false
		first.RemainingAmount = decimal.Zero
		first.InstallmentsPaid = 3
		first.ClosedAt = &closed
		if err := tx.UpdateLoan(ctx, first); err != nil {
			return err
		}

		second := newTestLoan(testBorrower)
		if err := tx.InsertLoan(ctx, second); err != nil {
			t.Errorf("Expected new loan after closing the first, got %v", err)
		}

		active, err := tx.GetActiveLoan(ctx, testBorrower)
		if err != nil {
			return err
		}
		if active.Id != second.Id {
			t.Errorf("Expected active loan %d, got %d", second.Id, active.Id)
		}

		got, err := tx.GetLoan(ctx, first.Id)
		if err != nil {
			return err
		}
		if got.Active || got.ClosedAt == nil || !got.ClosedAt.Equal(closed) || !got.RemainingAmount.IsZero() {
			t.Errorf("Unexpected closed loan: %+v", got)
		}

		all, err := tx.ListLoansByBorrower(ctx, testBorrower)
		if err != nil {
			return err
		}
		if len(all) != 2 {
			t.Errorf("Expected 2 loans, got %d", len(all))
		}

		counts, err := tx.LoanCounts(ctx)
		if err != nil {
			return err
		}
		if counts.Issued != 2 || counts.Repaid != 1 {
			t.Errorf("Unexpected counts: %+v", counts)
		}

		if _, err := tx.GetLoan(ctx, 99); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}
}

func TestLoans_Overdue(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	err := service.RunInTx(ctx, func(tx store.LedgerTx) error {
		if err := tx.InsertLoan(ctx, newTestLoan(testBorrower)); err != nil {
			return err
		}
		if err := tx.InsertLoan(ctx, newTestLoan(testMerchant)); err != nil {
			return err
		}

		none, err := tx.ListOverdueLoans(ctx, testNow.Add(24*time.Hour))
		if err != nil {
			return err
		}
		if len(none) != 0 {
			t.Errorf("Expected no overdue loans, got %d", len(none))
		}

		late, err := tx.ListOverdueLoans(ctx, testNow.Add(721*time.Hour))
		if err != nil {
			return err
		}
		if len(late) != 2 {
			t.Errorf("Expected 2 overdue loans, got %d", len(late))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}
}

func TestCollateral_Lifecycle(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	err := service.RunInTx(ctx, func(tx store.LedgerTx) error {
		loan := newTestLoan(testBorrower)
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}

		pos := &models.CollateralPosition{
			Owner:       testBorrower,
			Amount:      decimal.NewFromInt(675),
			DepositedAt: testNow,
			LoanId:      &loan.Id,
			Active:      true,
		}
		if err := tx.InsertCollateral(ctx, pos); err != nil {
			return err
		}

		dup := *pos
		if err := tx.InsertCollateral(ctx, &dup); !errors.Is(err, store.ErrDuplicateEntry) {
			t.Errorf("Expected ErrDuplicateEntry for second active position, got %v", err)
		}

		got, err := tx.GetActiveCollateral(ctx, testBorrower)
		if err != nil {
			return err
		}
		if got.LoanId == nil || *got.LoanId != loan.Id || !got.Amount.Equal(decimal.NewFromInt(675)) {
			t.Errorf("Unexpected position: %+v", got)
		}

		released := testNow.Add(time.Hour)
		got.LoanId = nil
		got.Active = false
		got.ReleasedAt = &released
		if err := tx.UpdateCollateral(ctx, got); err != nil {
			return err
		}
		if _, err := tx.GetActiveCollateral(ctx, testBorrower); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after release, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}
}

func TestPurchases(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	err := service.RunInTx(ctx, func(tx store.LedgerTx) error {
		loan := newTestLoan(testBorrower)
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}
		p := &models.Purchase{
			Buyer:        testBorrower,
			Merchant:     testMerchant,
			Item:         "Laptop",
			TotalPrice:   decimal.NewFromInt(900),
			Installments: 3,
			LoanId:       loan.Id,
			CreatedAt:    testNow,
		}
		if err := tx.InsertPurchase(ctx, p); err != nil {
			return err
		}

		byLoan, err := tx.GetPurchaseByLoan(ctx, loan.Id)
		if err != nil {
			return err
		}
		if byLoan.Id != p.Id || byLoan.Item != "Laptop" {
			t.Errorf("Unexpected purchase: %+v", byLoan)
		}

		if !byLoan.PaidAmount.IsZero() || byLoan.Defaulted {
			t.Errorf("Expected an unpaid open purchase, got %+v", byLoan)
		}

		p.InstallmentsPaid = 2
		p.PaidAmount = decimal.NewFromInt(600)
		p.Defaulted = true
		if err := tx.UpdatePurchase(ctx, p); err != nil {
			return err
		}
		updated, err := tx.GetPurchase(ctx, p.Id)
		if err != nil {
			return err
		}
		if updated.InstallmentsPaid != 2 || !updated.PaidAmount.Equal(decimal.NewFromInt(600)) || !updated.Defaulted || updated.Completed {
			t.Errorf("Unexpected updated purchase: %+v", updated)
		}

		p.InstallmentsPaid = 3
		p.PaidAmount = decimal.NewFromInt(900)
		p.Defaulted = false
		p.Completed = true
		if err := tx.UpdatePurchase(ctx, p); err != nil {
			return err
		}

		buyerList, err := tx.ListPurchasesByBuyer(ctx, testBorrower)
		if err != nil {
			return err
		}
		merchantList, err := tx.ListPurchasesByMerchant(ctx, testMerchant)
		if err != nil {
			return err
		}
		if len(buyerList) != 1 || len(merchantList) != 1 || !merchantList[0].Completed {
			t.Errorf("Unexpected purchase lists: buyer=%d merchant=%d", len(buyerList), len(merchantList))
		}

		stats, err := tx.PurchaseStats(ctx)
		if err != nil {
			return err
		}
		if stats.Count != 1 || !stats.Volume.Equal(decimal.NewFromInt(900)) {
			t.Errorf("Unexpected purchase stats: %+v", stats)
		}

		if _, err := tx.GetPurchase(ctx, 77); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}
}

func TestNewService_ValidatesConfig(t *testing.T) {
	ctx := context.Background()
	cases := []models.DatabaseConfig{
		{Path: "", MaxOpenConns: 1, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 0, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 1, PingTimeout: 0},
	}
	for i, cfg := range cases {
		if _, err := NewService(ctx, cfg); err == nil {
			t.Errorf("case %d: expected config error", i)
		}
	}
}

func TestNewService_OpensFile(t *testing.T) {
	cfg := models.DatabaseConfig{
		Path:         t.TempDir() + "/credit.db",
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  time.Second,
		BusyTimeout:  time.Second,
	}
	service, err := NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer service.Close()

	profiles, err := service.ListProfiles(context.Background())
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("Expected empty database, got %d profiles", len(profiles))
	}
}
