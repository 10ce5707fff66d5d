package api

import (
	"net/http"
)

// awardRequest is the body of POST /users/{userID}/badges.
type awardRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UsersHandler handles per-user streak, badge and points requests.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

func (h *UsersHandler) userID(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	id, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return 0, false
	}
	return id, true
}

// HandleCreateStreak handles POST /users/{userID}/streak.
func (h *UsersHandler) HandleCreateStreak(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_streak"
	id, ok := h.userID(w, r, op)
	if !ok {
		return
	}
	rec, err := h.deps.CreateStreak(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, newStreakResponse(rec, h.deps.Location()))
}

// HandleGetStreak handles GET /users/{userID}/streak.
func (h *UsersHandler) HandleGetStreak(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_streak"
	id, ok := h.userID(w, r, op)
	if !ok {
		return
	}
	rec, err := h.deps.Streak(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newStreakResponse(rec, h.deps.Location()))
}

// HandleDeleteStreak handles DELETE /users/{userID}/streak.
func (h *UsersHandler) HandleDeleteStreak(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_streak"
	id, ok := h.userID(w, r, op)
	if !ok {
		return
	}
	deleted, err := h.deps.DeleteStreak(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, errNoStreak))
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true})
}

// HandleAdvanceStreak handles POST /users/{userID}/streak/advance.
func (h *UsersHandler) HandleAdvanceStreak(w http.ResponseWriter, r *http.Request) {
	const op = "api.advance_streak"
	id, ok := h.userID(w, r, op)
	if !ok {
		return
	}
	rec, err := h.deps.AdvanceStreak(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newStreakResponse(rec, h.deps.Location()))
}

// HandleListBadges handles GET /users/{userID}/badges.
func (h *UsersHandler) HandleListBadges(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_badges"
	id, ok := h.userID(w, r, op)
	if !ok {
		return
	}
	list, err := h.deps.Badges(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	out := make([]badgeResponse, 0, len(list))
	for _, b := range list {
		out = append(out, newBadgeResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleAwardBadge handles POST /users/{userID}/badges.
func (h *UsersHandler) HandleAwardBadge(w http.ResponseWriter, r *http.Request) {
	const op = "api.award_badge"
	id, ok := h.userID(w, r, op)
	if !ok {
		return
	}
	var req awardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	b, err := h.deps.AwardBadge(r.Context(), id, req.Name, req.Description)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBadgeResponse(b))
}

// HandlePoints handles GET /users/{userID}/points.
func (h *UsersHandler) HandlePoints(w http.ResponseWriter, r *http.Request) {
	const op = "api.points"
	id, ok := h.userID(w, r, op)
	if !ok {
		return
	}
	pts, err := h.deps.Points(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pointsResponse{UserID: id, Points: pts})
}
