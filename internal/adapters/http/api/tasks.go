package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/cadence/internal/domain/model"
)

// submitRequest is the body of POST /completions.
type submitRequest struct {
	Kind string `json:"kind" validate:"required,oneof=habit daily"`
	ID   int64  `json:"id" validate:"required,gt=0"`
}

// TasksHandler handles task completion requests.
type TasksHandler struct {
	deps Dependencies
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(deps Dependencies) *TasksHandler {
	return &TasksHandler{deps: deps}
}

// HandleComplete handles POST /tasks/{kind}/{id}/complete synchronously.
func (h *TasksHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	const op = "api.complete_task"
	ref, err := model.NewTaskRef(chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.CompleteTask(r.Context(), ref)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newCompletionResponse(res, h.deps.Location()))
}

// HandleSubmit handles POST /completions, queueing the completion.
func (h *TasksHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_completion"
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ref := model.TaskRef{Kind: model.TaskKind(req.Kind), ID: req.ID}
	eventID, duplicate, err := h.deps.Submit(r.Context(), ref)
	switch {
	case err != nil:
		writeDomainError(w, op, err)
	case duplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: eventID})
	}
}
