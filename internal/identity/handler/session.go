package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"tenant-admin-plane/internal/identity/service"
	"tenant-admin-plane/internal/server/middleware"
	"tenant-admin-plane/internal/server/respond"
)

// session returns the reconciled session for the authenticated principal.
// Every read re-runs reconciliation, so invitations created after sign-in
// take effect on the next request.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email, ok := middleware.GetEmail(ctx)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
		return
	}

	sess, err := h.reconciler.Reconcile(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSessionEmail),
			errors.Is(err, service.ErrUserNotFound):
			// Token no longer matches a user record; the session is dead.
			h.clearCookie(w)
			respond.Error(w, http.StatusUnauthorized, "unauthenticated", "session no longer valid")
		case errors.Is(err, service.ErrInconsistentSession):
			h.log.Error("session reconciliation found inconsistent state",
				zap.String("email", email), zap.Error(err))
			h.clearCookie(w)
			respond.Error(w, http.StatusForbidden, "forbidden", "account has no active access")
		default:
			h.log.Error("session reconciliation failed", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		}
		return
	}
	respond.JSON(w, http.StatusOK, sess)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w)
	respond.JSON(w, http.StatusNoContent, nil)
}
