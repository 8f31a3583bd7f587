package ledgerhttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	due, err := parseOptionalDate("dueDate", req.DueDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	draft := ledger.DraftInput{
		Type:            ledger.VoucherType(req.Type),
		Date:            date,
		Currency:        req.Currency,
		PartyType:       req.PartyType,
		PartyID:         req.PartyID,
		TotalAmount:     req.TotalAmount,
		Remarks:         req.Remarks,
		Actor:           actorFrom(r),
		DueDate:         due,
		SettlementOrder: req.SettlementOrder,
	}
	if req.ExchangeRate != nil {
		draft.ExchangeRate = *req.ExchangeRate
	}

	if !req.Post {
		v, err := h.ledger.CreateDraft(r.Context(), draft)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.Success(w, http.StatusCreated, toVoucher(v))
		return
	}
	lines, err := h.resolveLines(r.Context(), req.Lines)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.ledger.CreateAndPost(r.Context(), draft, lines)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, toPost(res))
}

func (h *Handler) getVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := voucherID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	detail, err := h.ledger.GetVoucher(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, toVoucherDetail(detail))
}

func (h *Handler) postVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := voucherID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req postRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	postingDate := h.now().UTC()
	if req.PostingDate != "" {
		if postingDate, err = parseDate("postingDate", req.PostingDate); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	lines, err := h.resolveLines(r.Context(), req.Lines)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.ledger.PostVoucher(r.Context(), ledger.PostInput{
		VoucherID:   id,
		PostingDate: postingDate,
		Actor:       actorFrom(r),
		Lines:       lines,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, toPost(res))
}

func (h *Handler) reverseVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := voucherID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req reverseRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.ledger.ReverseVoucher(r.Context(), ledger.ReverseInput{
		VoucherID: id,
		Reason:    req.Reason,
		Actor:     actorFrom(r),
		Date:      date,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, reverseResponse{
		Original: toVoucher(res.Original),
		Reversal: toVoucher(res.Reversal),
		EntryIDs: res.EntryIDs,
	})
}

func (h *Handler) allocateVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := voucherID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.ledger.AllocateVoucher(r.Context(), ledger.AllocateInput{VoucherID: id, Actor: actorFrom(r)})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, toAllocate(res))
}

func (h *Handler) postInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	due, err := parseOptionalDate("dueDate", req.DueDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.ledger.PostInvoice(r.Context(), ledger.InvoiceInput{
		Date:            date,
		Currency:        req.Currency,
		PartyType:       req.PartyType,
		PartyID:         req.PartyID,
		Subtotal:        req.Subtotal,
		Shipping:        req.Shipping,
		Tax:             req.Tax,
		Discount:        req.Discount,
		DueDate:         due,
		SettlementOrder: req.SettlementOrder,
		Remarks:         req.Remarks,
		Actor:           actorFrom(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, toPost(res))
}

func (h *Handler) postReceipt(w http.ResponseWriter, r *http.Request) {
	h.postSettlement(w, r, h.ledger.PostReceipt)
}

func (h *Handler) postPayment(w http.ResponseWriter, r *http.Request) {
	h.postSettlement(w, r, h.ledger.PostPayment)
}

func (h *Handler) postSettlement(w http.ResponseWriter, r *http.Request, post func(context.Context, ledger.SettlementInput) (ledger.SettlementResult, error)) {
	var req settlementRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := post(r.Context(), ledger.SettlementInput{
		Date:      date,
		Currency:  req.Currency,
		PartyType: req.PartyType,
		PartyID:   req.PartyID,
		Amount:    req.Amount,
		Remarks:   req.Remarks,
		Actor:     actorFrom(r),
		Allocate:  req.Allocate,
	})
	if err != nil && res.Voucher.ID == uuid.Nil {
		h.writeError(w, r, err)
		return
	}
	out := settlementResponse{postResponse: toPost(res.PostResult)}
	if res.Allocation != nil {
		alloc := toAllocate(*res.Allocation)
		out.Allocation = &alloc
	}
	if err != nil {
		// the voucher stays posted; allocation can be retried through /vouchers/{id}/allocate
		h.logger.Warn("settlement allocation failed", slog.String("voucher", res.Voucher.Number), slog.Any("error", err))
	}
	httpx.Success(w, http.StatusCreated, out)
}

// resolveLines maps request lines onto posting lines, looking up account
// codes where no id was given.
func (h *Handler) resolveLines(ctx context.Context, in []lineRequest) ([]ledger.PostingLine, error) {
	lines := make([]ledger.PostingLine, 0, len(in))
	codes := make(map[string]uuid.UUID)
	for _, l := range in {
		line := ledger.PostingLine{Debit: l.Debit, Credit: l.Credit, Remarks: l.Remarks}
		switch {
		case l.AccountID != nil:
			line.AccountID = *l.AccountID
		default:
			id, ok := codes[l.AccountCode]
			if !ok {
				acc, err := h.ledger.GetAccountByCode(ctx, l.AccountCode)
				if err != nil {
					return nil, err
				}
				id = acc.ID
				codes[l.AccountCode] = id
			}
			line.AccountID = id
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func voucherID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid voucher id")
	}
	return id, nil
}
