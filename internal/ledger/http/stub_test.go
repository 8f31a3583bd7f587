package ledgerhttp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	"github.com/odyssey-erp/odyssey-ledger/internal/idempotency"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/reports"
)

type stubLedger struct {
	createDraftFn     func(context.Context, ledger.DraftInput) (ledger.Voucher, error)
	createAndPostFn   func(context.Context, ledger.DraftInput, []ledger.PostingLine) (ledger.PostResult, error)
	postVoucherFn     func(context.Context, ledger.PostInput) (ledger.PostResult, error)
	reverseVoucherFn  func(context.Context, ledger.ReverseInput) (ledger.ReverseResult, error)
	allocateVoucherFn func(context.Context, ledger.AllocateInput) (ledger.AllocateResult, error)
	getVoucherFn      func(context.Context, uuid.UUID) (ledger.VoucherDetail, error)
	postInvoiceFn     func(context.Context, ledger.InvoiceInput) (ledger.PostResult, error)
	postReceiptFn     func(context.Context, ledger.SettlementInput) (ledger.SettlementResult, error)
	postPaymentFn     func(context.Context, ledger.SettlementInput) (ledger.SettlementResult, error)
	activeMappingFn   func(context.Context) (ledger.AccountMapping, error)
	activateMappingFn func(context.Context, ledger.AccountMapping, string) (ledger.AccountMapping, error)
	createAccountFn   func(context.Context, ledger.CreateAccountInput) (ledger.Account, error)
	listAccountsFn    func(context.Context) ([]ledger.Account, error)
	getAccountFn      func(context.Context, string) (ledger.Account, error)
	deactivateFn      func(context.Context, string, bool, string) (ledger.Account, error)
}

func (s *stubLedger) CreateDraft(ctx context.Context, in ledger.DraftInput) (ledger.Voucher, error) {
	if s.createDraftFn != nil {
		return s.createDraftFn(ctx, in)
	}
	return ledger.Voucher{}, nil
}

func (s *stubLedger) CreateAndPost(ctx context.Context, in ledger.DraftInput, lines []ledger.PostingLine) (ledger.PostResult, error) {
	if s.createAndPostFn != nil {
		return s.createAndPostFn(ctx, in, lines)
	}
	return ledger.PostResult{}, nil
}

func (s *stubLedger) PostVoucher(ctx context.Context, in ledger.PostInput) (ledger.PostResult, error) {
	if s.postVoucherFn != nil {
		return s.postVoucherFn(ctx, in)
	}
	return ledger.PostResult{}, nil
}

func (s *stubLedger) ReverseVoucher(ctx context.Context, in ledger.ReverseInput) (ledger.ReverseResult, error) {
	if s.reverseVoucherFn != nil {
		return s.reverseVoucherFn(ctx, in)
	}
	return ledger.ReverseResult{}, nil
}

func (s *stubLedger) AllocateVoucher(ctx context.Context, in ledger.AllocateInput) (ledger.AllocateResult, error) {
	if s.allocateVoucherFn != nil {
		return s.allocateVoucherFn(ctx, in)
	}
	return ledger.AllocateResult{}, nil
}

func (s *stubLedger) GetVoucher(ctx context.Context, id uuid.UUID) (ledger.VoucherDetail, error) {
	if s.getVoucherFn != nil {
		return s.getVoucherFn(ctx, id)
	}
	return ledger.VoucherDetail{}, ledger.ErrVoucherNotFound
}

func (s *stubLedger) PostInvoice(ctx context.Context, in ledger.InvoiceInput) (ledger.PostResult, error) {
	if s.postInvoiceFn != nil {
		return s.postInvoiceFn(ctx, in)
	}
	return ledger.PostResult{}, nil
}

func (s *stubLedger) PostReceipt(ctx context.Context, in ledger.SettlementInput) (ledger.SettlementResult, error) {
	if s.postReceiptFn != nil {
		return s.postReceiptFn(ctx, in)
	}
	return ledger.SettlementResult{}, nil
}

func (s *stubLedger) PostPayment(ctx context.Context, in ledger.SettlementInput) (ledger.SettlementResult, error) {
	if s.postPaymentFn != nil {
		return s.postPaymentFn(ctx, in)
	}
	return ledger.SettlementResult{}, nil
}

func (s *stubLedger) ActiveMapping(ctx context.Context) (ledger.AccountMapping, error) {
	if s.activeMappingFn != nil {
		return s.activeMappingFn(ctx)
	}
	return ledger.AccountMapping{}, ledger.ErrMappingNotFound
}

func (s *stubLedger) ActivateMapping(ctx context.Context, m ledger.AccountMapping, actor string) (ledger.AccountMapping, error) {
	if s.activateMappingFn != nil {
		return s.activateMappingFn(ctx, m, actor)
	}
	return m, nil
}

func (s *stubLedger) CreateAccount(ctx context.Context, in ledger.CreateAccountInput) (ledger.Account, error) {
	if s.createAccountFn != nil {
		return s.createAccountFn(ctx, in)
	}
	return ledger.Account{}, nil
}

func (s *stubLedger) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	if s.listAccountsFn != nil {
		return s.listAccountsFn(ctx)
	}
	return nil, nil
}

func (s *stubLedger) GetAccountByCode(ctx context.Context, code string) (ledger.Account, error) {
	if s.getAccountFn != nil {
		return s.getAccountFn(ctx, code)
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

func (s *stubLedger) DeactivateAccount(ctx context.Context, code string, force bool, actor string) (ledger.Account, error) {
	if s.deactivateFn != nil {
		return s.deactivateFn(ctx, code, force, actor)
	}
	return ledger.Account{}, nil
}

type stubReports struct {
	tb  reports.TrialBalance
	bs  reports.BalanceSheet
	pl  reports.IncomeStatement
	cf  reports.CashFlow
	err error
}

func (s *stubReports) TrialBalance(_ context.Context, asOf time.Time) (reports.TrialBalance, error) {
	s.tb.AsOf = asOf
	return s.tb, s.err
}

func (s *stubReports) IncomeStatement(_ context.Context, from, to time.Time) (reports.IncomeStatement, error) {
	s.pl.From, s.pl.To = from, to
	return s.pl, s.err
}

func (s *stubReports) BalanceSheet(_ context.Context, asOf time.Time) (reports.BalanceSheet, error) {
	s.bs.AsOf = asOf
	return s.bs, s.err
}

func (s *stubReports) CashFlow(_ context.Context, from, to time.Time) (reports.CashFlow, error) {
	s.cf.From, s.cf.To = from, to
	return s.cf, s.err
}

type stubTimeline struct {
	filters audit.TimelineFilters
}

func (s *stubTimeline) Timeline(_ context.Context, f audit.TimelineFilters) (audit.Result, error) {
	s.filters = f
	return audit.Result{Rows: []audit.TimelineRow{{Actor: "alice", Action: "voucher.post"}}}, nil
}

type memoryKeys struct {
	mu      sync.Mutex
	keys    map[string]bool
	deleted []string
}

func (m *memoryKeys) CheckAndInsert(_ context.Context, key, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[key] {
		return idempotency.ErrConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryKeys) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	m.deleted = append(m.deleted, key)
	return nil
}
