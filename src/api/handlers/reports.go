package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	controllers "reporter/src/api/controllers"
	"reporter/src/schemas"
	"reporter/src/utils"
)

// SendEmailReports runs the full dispatch loop synchronously inside the
// request. 200 on completion, 500 when the scheduler store yields nothing,
// 403 carrying the error text for anything escaping the loop.
func (h *Handler) SendEmailReports(w http.ResponseWriter, r *http.Request) {
	// The run must finish even when the caller drops the connection, so the
	// dispatch context is detached from request cancellation.
	ctx := utils.WithLogger(context.WithoutCancel(r.Context()), h.Logger)

	err := h.Controller.DispatchReports(ctx)
	switch {
	case err == nil:
		h.respond(w, r, schemas.MessageResponse{Message: "Email send successfully to users"}, http.StatusOK)
	case errors.Is(err, controllers.ErrNoEntries):
		utils.WriteError(w, utils.InternalServerError("Email Not sent"))
	default:
		h.Logger.Errorf("dispatch aborted: %v", err)
		utils.WriteError(w, utils.Forbidden(err.Error()))
	}
}

func Healthcheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		fmt.Fprintf(w, "Im alive!")
	} else {
		fmt.Fprintf(w, "Method not available: %s", r.Method)
	}
}
