package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"vidya-quiz-service/internal/app"
	"vidya-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// APIHandler serves the daily quiz REST endpoints.
type APIHandler struct {
	engine *app.QuizEngine
	top    int
	logger *zap.Logger
}

func NewAPIHandler(engine *app.QuizEngine, top int, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if top <= 0 {
		top = app.DefaultLeaderboardTop
	}
	return &APIHandler{engine: engine, top: top, logger: logger}
}

// Register mounts the endpoints on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quiz/{date}", h.getQuiz)
	mux.HandleFunc("POST /api/quiz/{date}/submit", h.submit)
	mux.HandleFunc("GET /api/quiz/{date}/result", h.getResult)
	mux.HandleFunc("GET /api/leaderboard/{date}", h.getLeaderboard)
	mux.HandleFunc("POST /api/admin/quiz", h.publishQuiz)
}

type submitRequest struct {
	UserID     string             `json:"userId"`
	Name       string             `json:"name"`
	Selections []domain.Selection `json:"selections"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *APIHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	date, ok := h.date(w, r)
	if !ok {
		return
	}
	quiz, err := h.engine.QuizForStudent(r.Context(), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Public())
}

func (h *APIHandler) submit(w http.ResponseWriter, r *http.Request) {
	date, ok := h.date(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid submission payload"})
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Name = strings.TrimSpace(req.Name)
	if req.UserID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "missing userId or name"})
		return
	}

	result, err := h.engine.SubmitForDate(r.Context(), date, req.Name, req.UserID, req.Selections)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *APIHandler) getResult(w http.ResponseWriter, r *http.Request) {
	date, ok := h.date(w, r)
	if !ok {
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "missing userId"})
		return
	}
	result, found, err := h.engine.GetResultForDate(r.Context(), date, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorPayload{Message: "no result for date"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	date, ok := h.date(w, r)
	if !ok {
		return
	}
	top := h.top
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid top"})
			return
		}
		top = n
	}
	view, err := h.engine.LeaderboardView(r.Context(), date, top)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) publishQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid quiz payload"})
		return
	}
	date, err := domain.ResolveDate(quiz.Date, h.engine.Now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	quiz.Date = date
	stored, err := h.engine.Quizzes().PublishQuiz(r.Context(), quiz)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (h *APIHandler) date(w http.ResponseWriter, r *http.Request) (string, bool) {
	date, err := domain.ResolveDate(r.PathValue("date"), h.engine.Now())
	if err != nil {
		h.writeError(w, err)
		return "", false
	}
	return date, true
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status, message := clientError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorPayload{Message: message})
}

// clientError maps err to a status and a message safe to show clients.
func clientError(err error) (int, string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidDate), errors.Is(err, domain.ErrInvalidQuiz):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDateNotOpen):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrQuizNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadySubmitted), errors.Is(err, domain.ErrQuizExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrQuizNotReady):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		return status, "internal error"
	}
	return status, err.Error()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
