package ledgerhttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccount(a))
	}
	httpx.Success(w, http.StatusOK, out)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	acc, err := h.ledger.CreateAccount(r.Context(), ledger.CreateAccountInput{
		Code:    req.Code,
		Name:    req.Name,
		Type:    ledger.AccountType(req.Type),
		IsGroup: req.IsGroup,
		IsCash:  req.IsCash,
		Actor:   actorFrom(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, toAccount(acc))
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.ledger.GetAccountByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, toAccount(acc))
}

func (h *Handler) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	var req deactivateRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	acc, err := h.ledger.DeactivateAccount(r.Context(), chi.URLParam(r, "code"), req.Force, actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, toAccount(acc))
}

func (h *Handler) getMapping(w http.ResponseWriter, r *http.Request) {
	m, err := h.ledger.ActiveMapping(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, toMapping(m))
}

func (h *Handler) putMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.ledger.ActivateMapping(r.Context(), ledger.AccountMapping{
		SalesRevenue:    req.SalesRevenue,
		Tax:             req.Tax,
		Receivable:      req.Receivable,
		Payable:         req.Payable,
		Cash:            req.Cash,
		Discount:        req.Discount,
		ShippingRevenue: req.ShippingRevenue,
	}, actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, toMapping(m))
}
