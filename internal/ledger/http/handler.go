package ledgerhttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/reports"
)

// ActorHeader names the user recorded on vouchers and audit rows.
const ActorHeader = "X-Actor"

// LedgerService is the posting surface used by the handler.
type LedgerService interface {
	CreateDraft(ctx context.Context, input ledger.DraftInput) (ledger.Voucher, error)
	CreateAndPost(ctx context.Context, draft ledger.DraftInput, lines []ledger.PostingLine) (ledger.PostResult, error)
	PostVoucher(ctx context.Context, input ledger.PostInput) (ledger.PostResult, error)
	ReverseVoucher(ctx context.Context, input ledger.ReverseInput) (ledger.ReverseResult, error)
	AllocateVoucher(ctx context.Context, input ledger.AllocateInput) (ledger.AllocateResult, error)
	GetVoucher(ctx context.Context, id uuid.UUID) (ledger.VoucherDetail, error)

	PostInvoice(ctx context.Context, in ledger.InvoiceInput) (ledger.PostResult, error)
	PostReceipt(ctx context.Context, in ledger.SettlementInput) (ledger.SettlementResult, error)
	PostPayment(ctx context.Context, in ledger.SettlementInput) (ledger.SettlementResult, error)

	ActiveMapping(ctx context.Context) (ledger.AccountMapping, error)
	ActivateMapping(ctx context.Context, m ledger.AccountMapping, actor string) (ledger.AccountMapping, error)

	CreateAccount(ctx context.Context, input ledger.CreateAccountInput) (ledger.Account, error)
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	GetAccountByCode(ctx context.Context, code string) (ledger.Account, error)
	DeactivateAccount(ctx context.Context, code string, force bool, actor string) (ledger.Account, error)
}

// ReportService produces the financial statements.
type ReportService interface {
	TrialBalance(ctx context.Context, asOf time.Time) (reports.TrialBalance, error)
	IncomeStatement(ctx context.Context, from, to time.Time) (reports.IncomeStatement, error)
	BalanceSheet(ctx context.Context, asOf time.Time) (reports.BalanceSheet, error)
	CashFlow(ctx context.Context, from, to time.Time) (reports.CashFlow, error)
}

// AuditTimeline pages through audit events.
type AuditTimeline interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
}

// IdempotencyStore claims and releases Idempotency-Key values.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Handler exposes the ledger JSON API.
type Handler struct {
	logger      *slog.Logger
	ledger      LedgerService
	reports     ReportService
	audit       AuditTimeline
	idempotency IdempotencyStore
	validator   *validator.Validate
	now         func() time.Time
}

// NewHandler constructs the ledger API handler. audit and idempotency may be nil.
func NewHandler(logger *slog.Logger, ledgerSvc LedgerService, reportSvc ReportService, auditSvc AuditTimeline, idem IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		ledger:      ledgerSvc,
		reports:     reportSvc,
		audit:       auditSvc,
		idempotency: idem,
		validator:   validator.New(),
		now:         time.Now,
	}
}

// MountRoutes registers the ledger routes under the caller's prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.With(h.idempotent).Post("/", h.createAccount)
		r.Get("/{code}", h.getAccount)
		r.With(h.idempotent).Post("/{code}/deactivate", h.deactivateAccount)
	})
	r.Route("/vouchers", func(r chi.Router) {
		r.With(h.idempotent).Post("/", h.createVoucher)
		r.Get("/{id}", h.getVoucher)
		r.Group(func(r chi.Router) {
			r.Use(h.idempotent)
			r.Post("/{id}/post", h.postVoucher)
			r.Post("/{id}/reverse", h.reverseVoucher)
			r.Post("/{id}/allocate", h.allocateVoucher)
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(h.idempotent)
		r.Post("/invoices/post", h.postInvoice)
		r.Post("/receipts/post", h.postReceipt)
		r.Post("/payments/post", h.postPayment)
	})
	r.Get("/mappings/active", h.getMapping)
	r.With(h.idempotent).Put("/mappings/active", h.putMapping)

	reportLimiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			h.writeError(w, r, errRateLimited)
		}),
	)
	r.Route("/reports", func(r chi.Router) {
		r.Use(reportLimiter)
		r.Get("/trial-balance", h.trialBalance)
		r.Get("/income-statement", h.incomeStatement)
		r.Get("/balance-sheet", h.balanceSheet)
		r.Get("/cash-flow", h.cashFlow)
	})
	r.Get("/audit", h.auditTimeline)
}

func actorFrom(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
		return actor
	}
	return "system"
}
