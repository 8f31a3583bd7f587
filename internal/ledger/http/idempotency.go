package ledgerhttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// IdempotencyHeader carries the client supplied request key.
const IdempotencyHeader = "Idempotency-Key"

const idempotencyModule = "ledger"

// idempotent claims the Idempotency-Key before the handler runs. A replayed
// key is rejected with 409; a failed request releases its key so the client
// can retry with the same value.
func (h *Handler) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if key == "" || h.idempotency == nil {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > 128 {
			h.writeError(w, r, badRequest("%s too long", IdempotencyHeader))
			return
		}
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			h.writeError(w, r, err)
			return
		}
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if ww.Status() >= http.StatusBadRequest {
			if err := h.idempotency.Delete(context.WithoutCancel(r.Context()), key); err != nil {
				h.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
			}
		}
	})
}
