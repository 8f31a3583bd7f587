package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log audit.Log) error
}

// Invalidator drops cached reports after the ledger changes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Observer receives posting and reversal outcomes for metrics.
type Observer interface {
	PostingObserved(voucherType, result string, elapsed time.Duration)
	ReversalObserved(voucherType, result string)
}

// Service coordinates drafting, posting, reversing and settling vouchers.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	logger      *slog.Logger
	invalidator Invalidator
	observer    Observer
	now         func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithInvalidator registers the report cache invalidator.
func (s *Service) WithInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// WithObserver registers the metrics observer.
func (s *Service) WithObserver(obs Observer) {
	s.observer = obs
}

// CreateDraft opens a numbered draft voucher.
func (s *Service) CreateDraft(ctx context.Context, input DraftInput) (Voucher, error) {
	if err := validateDraft(&input); err != nil {
		return Voucher{}, err
	}
	var draft Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		draft, err = s.insertDraft(ctx, tx, input)
		return err
	})
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, audit.Log{
		Actor:    input.Actor,
		Action:   "voucher.create",
		Entity:   "voucher",
		EntityID: draft.ID.String(),
		Meta:     map[string]any{"number": draft.Number, "type": string(draft.Type)},
	})
	return draft, nil
}

// PostVoucher validates lines and writes them for a draft voucher.
func (s *Service) PostVoucher(ctx context.Context, input PostInput) (PostResult, error) {
	start := s.now()
	var voucherType VoucherType
	result, err := func() (PostResult, error) {
		if input.VoucherID == uuid.Nil {
			return PostResult{}, invalid("voucher_id", "voucher id required")
		}
		before, err := s.readAccounts(ctx, LineAccountIDs(input.Lines))
		if err != nil {
			return PostResult{}, err
		}
		var result PostResult
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			v, err := tx.GetVoucherForUpdate(ctx, input.VoucherID)
			if err != nil {
				return err
			}
			voucherType = v.Type
			if v.Status != VoucherStatusDraft {
				return fmt.Errorf("%w: voucher %s is %s", ErrInvalidStatus, v.Number, v.Status)
			}
			if _, err := ValidatePosting(input.Lines, before, v.Currency, v.TotalAmount); err != nil {
				return err
			}
			result, err = s.post(ctx, tx, v, input.Lines, before, input.PostingDate, input.Actor)
			return err
		})
		return result, err
	}()
	s.finishPosting(ctx, string(voucherType), start, result, input.Actor, err)
	return result, err
}

// CreateAndPost opens a draft and posts it in a single transaction.
func (s *Service) CreateAndPost(ctx context.Context, draft DraftInput, lines []PostingLine) (PostResult, error) {
	start := s.now()
	result, err := func() (PostResult, error) {
		if err := validateDraft(&draft); err != nil {
			return PostResult{}, err
		}
		before, err := s.readAccounts(ctx, LineAccountIDs(lines))
		if err != nil {
			return PostResult{}, err
		}
		if _, err := ValidatePosting(lines, before, draft.Currency, draft.TotalAmount); err != nil {
			return PostResult{}, err
		}
		var result PostResult
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			v, err := s.insertDraft(ctx, tx, draft)
			if err != nil {
				return err
			}
			result, err = s.post(ctx, tx, v, lines, before, draft.Date, draft.Actor)
			return err
		})
		return result, err
	}()
	s.finishPosting(ctx, string(draft.Type), start, result, draft.Actor, err)
	return result, err
}

// ReverseVoucher cancels a posted voucher by writing its negation.
func (s *Service) ReverseVoucher(ctx context.Context, input ReverseInput) (ReverseResult, error) {
	if input.VoucherID == uuid.Nil {
		return ReverseResult{}, invalid("voucher_id", "voucher id required")
	}
	var result ReverseResult
	var voucherType VoucherType
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetVoucherForUpdate(ctx, input.VoucherID)
		if err != nil {
			return err
		}
		voucherType = original.Type
		switch {
		case original.Status == VoucherStatusCancelled:
			return &AlreadyReversedError{VoucherID: original.ID, Number: original.Number}
		case original.Status != VoucherStatusPosted:
			return fmt.Errorf("%w: voucher %s is %s", ErrInvalidStatus, original.Number, original.Status)
		case original.ReversalOf != nil:
			return fmt.Errorf("%w: voucher %s is itself a reversal", ErrInvalidStatus, original.Number)
		}
		if original.Type == VoucherTypeInvoice {
			n, err := tx.CountInvoiceAllocations(ctx, original.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return invalid("voucher", fmt.Sprintf("invoice %s has %d allocations; reverse the settling vouchers first", original.Number, n))
			}
		}
		entries, err := tx.ListVoucherEntries(ctx, original.ID)
		if err != nil {
			return err
		}
		lines := reverseLines(entries)

		reason := input.Reason
		if reason == "" {
			reason = defaultReason(original.Type)
		}
		now := s.now()
		date := now
		if input.Date != nil {
			date = *input.Date
		}
		// the number counter is locked before the accounts, as in posting
		number, err := tx.NextNumber(ctx, original.Type, date.Year())
		if err != nil {
			return err
		}
		locked, err := tx.LockAccounts(ctx, sortedIDs(LineAccountIDs(lines)))
		if err != nil {
			return err
		}
		if err := validateReversal(lines, locked, original.Currency); err != nil {
			return err
		}
		originalID := original.ID
		reversal, err := tx.InsertVoucher(ctx, Voucher{
			ID:           uuid.New(),
			Number:       number,
			Type:         original.Type,
			Date:         date,
			Currency:     original.Currency,
			ExchangeRate: original.ExchangeRate,
			Status:       VoucherStatusPosted,
			PartyType:    original.PartyType,
			PartyID:      original.PartyID,
			TotalAmount:  TotalDebit(lines),
			Remarks:      fmt.Sprintf("Reversal of %s: %s", original.Number, reason),
			ReversalOf:   &originalID,
			CreatedBy:    input.Actor,
			PostedBy:     input.Actor,
			PostedAt:     &now,
		})
		if err != nil {
			return err
		}
		ids, err := s.writeEntries(ctx, tx, reversal, lines, locked, date, input.Actor, true)
		if err != nil {
			return err
		}
		if _, err := tx.CancelEntries(ctx, original.ID); err != nil {
			return err
		}
		if err := tx.CancelVoucher(ctx, original.ID, reason, input.Actor); err != nil {
			return err
		}
		switch original.Type {
		case VoucherTypeReceipt, VoucherTypePayment:
			if _, err := tx.ReleaseAllocations(ctx, original.ID); err != nil {
				return err
			}
		case VoucherTypeInvoice:
			if err := tx.ClearOutstanding(ctx, original.ID); err != nil {
				return err
			}
		}
		original.Status = VoucherStatusCancelled
		original.CancelReason = reason
		result = ReverseResult{Original: original, Reversal: reversal, EntryIDs: ids}
		return nil
	})
	if s.observer != nil {
		s.observer.ReversalObserved(string(voucherType), outcome(err))
	}
	if err != nil {
		s.logger.Warn("voucher reversal rejected",
			slog.String("voucher_id", input.VoucherID.String()),
			slog.Any("error", err))
		return ReverseResult{}, err
	}
	s.logger.Info("voucher reversed",
		slog.String("number", result.Original.Number),
		slog.String("reversal", result.Reversal.Number),
		slog.Int("entries", len(result.EntryIDs)))
	s.record(ctx, audit.Log{
		Actor:    input.Actor,
		Action:   "voucher.reverse",
		Entity:   "voucher",
		EntityID: input.VoucherID.String(),
		Meta: map[string]any{
			"reason":          result.Original.CancelReason,
			"reversal_id":     result.Reversal.ID.String(),
			"reversal_number": result.Reversal.Number,
		},
	})
	s.invalidate(ctx)
	return result, nil
}

// GetVoucher returns a voucher with its entries.
func (s *Service) GetVoucher(ctx context.Context, id uuid.UUID) (VoucherDetail, error) {
	var detail VoucherDetail
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetVoucher(ctx, id)
		if err != nil {
			return err
		}
		entries, err := tx.ListVoucherEntries(ctx, id)
		if err != nil {
			return err
		}
		detail = VoucherDetail{Voucher: v, Entries: entries}
		return nil
	})
	return detail, err
}

func (s *Service) insertDraft(ctx context.Context, tx TxRepository, input DraftInput) (Voucher, error) {
	number, err := tx.NextNumber(ctx, input.Type, input.Date.Year())
	if err != nil {
		return Voucher{}, err
	}
	return tx.InsertVoucher(ctx, Voucher{
		ID:              uuid.New(),
		Number:          number,
		Type:            input.Type,
		Date:            input.Date,
		Currency:        input.Currency,
		ExchangeRate:    input.ExchangeRate,
		Status:          VoucherStatusDraft,
		PartyType:       input.PartyType,
		PartyID:         input.PartyID,
		TotalAmount:     input.TotalAmount,
		Remarks:         input.Remarks,
		DueDate:         input.DueDate,
		SettlementOrder: input.SettlementOrder,
		CreatedBy:       input.Actor,
	})
}

// post runs inside the caller's transaction with v already locked.
func (s *Service) post(ctx context.Context, tx TxRepository, v Voucher, lines []PostingLine, before map[uuid.UUID]Account, postingDate time.Time, actor string) (PostResult, error) {
	locked, err := tx.LockAccounts(ctx, sortedIDs(LineAccountIDs(lines)))
	if err != nil {
		return PostResult{}, err
	}
	if err := checkStale(before, locked); err != nil {
		return PostResult{}, err
	}
	if _, err := ValidatePosting(lines, locked, v.Currency, v.TotalAmount); err != nil {
		return PostResult{}, err
	}
	if postingDate.IsZero() {
		postingDate = v.Date
	}
	ids, err := s.writeEntries(ctx, tx, v, lines, locked, postingDate, actor, false)
	if err != nil {
		return PostResult{}, err
	}
	total := Round2(TotalDebit(lines))
	at := s.now()
	if err := tx.MarkVoucherPosted(ctx, v.ID, actor, at, total); err != nil {
		return PostResult{}, err
	}
	if v.Type == VoucherTypeInvoice {
		outstanding := Round2(debitsTo(lines, locked, AccountTypeAsset))
		if err := tx.SetInvoiceTerms(ctx, v.ID, outstanding, v.DueDate, v.SettlementOrder); err != nil {
			return PostResult{}, err
		}
		v.Outstanding = outstanding
	}
	v.Status = VoucherStatusPosted
	v.TotalAmount = total
	v.PostedBy = actor
	v.PostedAt = &at
	return PostResult{Voucher: v, EntryIDs: ids}, nil
}

// writeEntries inserts one entry per line and moves each touched account's
// stored balance by the signed total of its lines.
func (s *Service) writeEntries(ctx context.Context, tx TxRepository, v Voucher, lines []PostingLine, accounts map[uuid.UUID]Account, postingDate time.Time, actor string, cancelled bool) ([]uuid.UUID, error) {
	now := s.now()
	entries := make([]Entry, 0, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	deltas := make(map[uuid.UUID]decimal.Decimal, len(lines))
	for _, line := range lines {
		acc := accounts[line.AccountID]
		id := uuid.New()
		entries = append(entries, Entry{
			ID:            id,
			VoucherID:     v.ID,
			AccountID:     line.AccountID,
			Debit:         Round2(line.Debit),
			Credit:        Round2(line.Credit),
			PostingDate:   postingDate,
			VoucherType:   v.Type,
			VoucherNumber: v.Number,
			Remarks:       line.Remarks,
			IsCancelled:   cancelled,
			ReversalOf:    v.ReversalOf,
			CreatedBy:     actor,
			CreatedAt:     now,
		})
		ids = append(ids, id)
		deltas[line.AccountID] = deltas[line.AccountID].Add(SignedAmount(acc.Type, Round2(line.Debit), Round2(line.Credit)))
	}
	if err := tx.InsertEntries(ctx, entries); err != nil {
		return nil, err
	}
	touched := make([]uuid.UUID, 0, len(deltas))
	for id := range deltas {
		touched = append(touched, id)
	}
	for _, id := range sortedIDs(touched) {
		if deltas[id].IsZero() {
			continue
		}
		if err := tx.ApplyBalance(ctx, id, deltas[id]); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (s *Service) readAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Account, error) {
	var accounts map[uuid.UUID]Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		accounts, err = tx.GetAccounts(ctx, ids)
		return err
	})
	return accounts, err
}

func (s *Service) finishPosting(ctx context.Context, voucherType string, start time.Time, result PostResult, actor string, err error) {
	if s.observer != nil {
		s.observer.PostingObserved(voucherType, outcome(err), s.now().Sub(start))
	}
	if err != nil {
		s.logger.Warn("voucher posting rejected", slog.String("type", voucherType), slog.Any("error", err))
		return
	}
	s.logger.Info("voucher posted",
		slog.String("number", result.Voucher.Number),
		slog.String("total", result.Voucher.TotalAmount.StringFixed(2)),
		slog.Int("entries", len(result.EntryIDs)))
	s.record(ctx, audit.Log{
		Actor:    actor,
		Action:   "voucher.post",
		Entity:   "voucher",
		EntityID: result.Voucher.ID.String(),
		Meta: map[string]any{
			"number": result.Voucher.Number,
			"type":   voucherType,
			"total":  result.Voucher.TotalAmount.StringFixed(2),
		},
	})
	s.invalidate(ctx)
}

func (s *Service) record(ctx context.Context, log audit.Log) {
	if s.audit == nil {
		return
	}
	log.At = s.now()
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", log.Action), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("report cache invalidation failed", slog.Any("error", err))
	}
}

func validateDraft(input *DraftInput) error {
	if !input.Type.Valid() {
		return invalid("type", fmt.Sprintf("unknown voucher type %q", input.Type))
	}
	if input.Date.IsZero() {
		return invalid("date", "date required")
	}
	if _, err := currency.ParseISO(input.Currency); err != nil {
		return invalid("currency", fmt.Sprintf("%q is not an ISO 4217 code", input.Currency))
	}
	if input.ExchangeRate.IsZero() {
		input.ExchangeRate = decimal.NewFromInt(1)
	}
	if input.ExchangeRate.IsNegative() {
		return invalid("exchange_rate", "exchange rate must be positive")
	}
	if input.TotalAmount.IsNegative() {
		return invalid("total", "total must not be negative")
	}
	if (input.PartyType == "") != (input.PartyID == nil) {
		return invalid("party", "party type and party id must be given together")
	}
	return nil
}

// checkStale compares accounts read before the transaction with the locked rows.
func checkStale(before, locked map[uuid.UUID]Account) error {
	for id, prev := range before {
		cur, ok := locked[id]
		if !ok {
			return &StaleReferenceError{Entity: "account", ID: id, Reason: "account no longer exists"}
		}
		if prev.IsActive && !cur.IsActive {
			return &StaleReferenceError{Entity: "account", ID: id, Reason: fmt.Sprintf("account %s was deactivated", cur.Code)}
		}
		if !prev.IsGroup && cur.IsGroup {
			return &StaleReferenceError{Entity: "account", ID: id, Reason: fmt.Sprintf("account %s became a group account", cur.Code)}
		}
	}
	return nil
}

func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func defaultReason(t VoucherType) string {
	switch t {
	case VoucherTypeInvoice:
		return ReasonInvoiceVoid
	case VoucherTypeReceipt:
		return ReasonReceiptVoid
	case VoucherTypePayment:
		return ReasonPaymentVoid
	}
	return ReasonManualCorrection
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrStaleReference):
		return "stale"
	case errors.Is(err, ErrAlreadyReversed):
		return "already_reversed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}
