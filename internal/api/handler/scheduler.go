package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/illenko/opspages/internal/api/helpers"
	"github.com/illenko/opspages/internal/scheduler"
)

type DailyScheduler interface {
	GetStatus() scheduler.RunStatus
	TriggerRun(ctx context.Context) error
}

type SchedulerHandler struct {
	scheduler DailyScheduler
}

func NewSchedulerHandler(s DailyScheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: s}
}

func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		helpers.WriteData(w, http.StatusOK, scheduler.RunStatus{})
		return
	}
	helpers.WriteData(w, http.StatusOK, h.scheduler.GetStatus())
}

func (h *SchedulerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		helpers.WriteError(w, http.StatusServiceUnavailable, "scheduler not configured")
		return
	}

	if err := h.scheduler.TriggerRun(r.Context()); err != nil {
		if errors.Is(err, scheduler.ErrRunAlreadyInProgress) {
			helpers.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		helpers.WriteServiceError(w, r, err, "")
		return
	}

	helpers.WriteJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"message": "Daily page run started",
	})
}
