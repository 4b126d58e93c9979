package web

import (
	"errors"
	"net/http"
	"strconv"

	"eventsched/internal/models"
	"eventsched/internal/store"
)

const (
	codeNotFound           = "not_found"
	codeInvalidArgument    = "invalid_argument"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidID          = "invalid_id"
	codeInternalError      = "internal_error"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type eventResponse struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Seats int    `json:"seats"`
}

type createEventRequest struct {
	Name  string `json:"name"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Seats int    `json:"seats"`
}

// modifyEventRequest carries presence: an omitted or null field is left unchanged.
type modifyEventRequest struct {
	Name  *string `json:"name"`
	Date  *string `json:"date"`
	Time  *string `json:"time"`
	Seats *int    `json:"seats"`
}

type generateRequest struct {
	Count int `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func toResponse(e models.Event) eventResponse {
	return eventResponse{ID: e.ID, Name: e.Name, Date: e.Date, Time: e.Time, Seats: e.Seats}
}

func toResponses(events []models.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toResponse(e))
	}
	return out
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	var (
		events []models.Event
		err    error
	)
	switch r.URL.Query().Get("order") {
	case "", "forward":
		events, err = s.sched.Forward(r.Context())
	case "reverse":
		events, err = s.sched.Reverse(r.Context())
	default:
		writeError(w, http.StatusBadRequest, codeInvalidArgument, "order must be forward or reverse")
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(events))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := s.sched.Search(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(e))
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := s.sched.Insert(r.Context(), req.Name, req.Date, req.Time, req.Seats)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventResponse{ID: id, Name: req.Name, Date: req.Date, Time: req.Time, Seats: req.Seats})
}

func (s *Server) handleModifyEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req modifyEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u := models.EventUpdate{Name: req.Name, Date: req.Date, Time: req.Time, Seats: req.Seats}
	e, err := s.sched.Modify(r.Context(), id, u)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(e))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.sched.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ids, err := s.sched.Generate(r.Context(), req.Count)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.sched.Count(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// decodeBody reads a size-limited JSON body into v, answering the request
// itself when that fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		// The decoder may report a syntax error first; the limit error sticks to the body.
		_, rerr := r.Body.Read(make([]byte, 1))
		errors.As(rerr, &tooLarge)
	}
	if tooLarge != nil {
		writeError(w, http.StatusRequestEntityTooLarge, codeInvalidRequestBody, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
	return false
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidID, "event id must be a whole number")
		return 0, false
	}
	return id, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "event not found")
	case errors.Is(err, models.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, codeInvalidArgument, err.Error())
	default:
		s.logger.Error("Request failed.", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
