package tasks

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Client-facing messages. Clients match on these strings, so they stay as
// they are, French included.
const (
	msgServerError     = "Server Error"
	msgServerErrorFR   = "Erreur serveur"
	msgUpdated         = "Tâche mise à jour avec succès."
	msgUpdateFailed    = "Erreur lors de la mise à jour de la tâche."
	msgInserted        = "Tâche insérée avec succès !"
	msgInsertFailed    = "Erreur lors de l'insertion de la tâche."
	msgInvalidPriority = "Priorité invalide."
	msgInvalidDate     = "Date ou heure invalide."
	msgDateInPast      = "La date d'échéance ne peut pas être dans le passé."
	msgInvalidBody     = "Corps de requête invalide."
	msgInvalidID       = "Identifiant de tâche invalide."
	msgInvalidStatus   = "Invalid status"
	msgTaskNotFound    = "Task not found"
	msgStatusUpdated   = "Task status updated successfully"
	msgStatusFailed    = "Error updating task status"
	msgHistoryFailed   = "Error fetching tasks"
)

type messageResponse struct {
	Message string `json:"message"`
}

type errResponse struct {
	Error string `json:"error"`
}

type countResponse struct {
	TaskCount int `json:"taskCount"`
}

// RegisterRoutes mounts the task routes on r. Callers mount r under /api.
func RegisterRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	r.Get("/tasks/today", countDueToday(svc, logger))
	r.Get("/tasks", listDueToday(svc, logger))
	r.Put("/tasks/{id}", updateTask(svc, logger))
	r.Get("/tasks-by-status", tasksByStatus(svc, logger))
	r.Post("/tasks-add", createTask(svc, logger))
	r.Put("/tasks/{id}/status", updateTaskStatus(svc, logger))
	r.Get("/history", history(svc, logger))
}

func countDueToday(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.CountDueToday(r.Context())
		if err != nil {
			logStoreError(logger, r, "count_due_today", err)
			writeText(w, http.StatusInternalServerError, msgServerError)
			return
		}
		writeJSON(w, http.StatusOK, countResponse{TaskCount: n})
	}
}

func listDueToday(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := svc.ListDueToday(r.Context())
		if err != nil {
			logStoreError(logger, r, "list_due_today", err)
			writeText(w, http.StatusInternalServerError, msgServerError)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

func updateTask(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := taskID(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgInvalidID})
			return
		}

		var in UpdateInput
		if err := decodeBody(r, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgInvalidBody})
			return
		}

		if err := svc.Update(r.Context(), id, in); err != nil {
			if errors.Is(err, ErrInvalidDueDate) {
				writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgInvalidDate})
				return
			}
			logStoreError(logger, r, "update", err)
			writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgUpdateFailed})
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: msgUpdated})
	}
}

func tasksByStatus(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := svc.GroupByStatus(r.Context())
		if err != nil {
			logStoreError(logger, r, "group_by_status", err)
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: msgServerErrorFR})
			return
		}
		writeJSON(w, http.StatusOK, groups)
	}
}

func createTask(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CreateInput
		if err := decodeBody(r, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgInvalidBody})
			return
		}
		logger.Debug("task_create_requested",
			slog.String("task_name", in.TaskName),
			slog.String("category", in.Category),
			slog.String("due_date", in.DueDate),
			slog.String("due_time", in.DueTime),
			slog.String("priority", in.Priority),
		)

		id, err := svc.Create(r.Context(), in)
		switch {
		case errors.Is(err, ErrInvalidPriority):
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgInvalidPriority})
			return
		case errors.Is(err, ErrInvalidDueDate):
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgInvalidDate})
			return
		case errors.Is(err, ErrDueDateInPast):
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgDateInPast})
			return
		case err != nil:
			logStoreError(logger, r, "create", err)
			writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgInsertFailed})
			return
		}

		logger.Info("task_created", slog.Int64("task_id", id))
		writeJSON(w, http.StatusOK, messageResponse{Message: msgInserted})
	}
}

func updateTaskStatus(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Status string `json:"status"`
		}
		if err := decodeBody(r, &in); err != nil {
			writeText(w, http.StatusBadRequest, msgInvalidStatus)
			return
		}

		// ids start at 1, so an unparsable id falls through to not found
		id, _ := taskID(r)

		err := svc.UpdateStatus(r.Context(), id, in.Status)
		switch {
		case errors.Is(err, ErrInvalidStatus):
			writeText(w, http.StatusBadRequest, msgInvalidStatus)
			return
		case errors.Is(err, ErrNotFound):
			writeText(w, http.StatusNotFound, msgTaskNotFound)
			return
		case err != nil:
			logStoreError(logger, r, "update_status", err)
			writeText(w, http.StatusInternalServerError, msgStatusFailed)
			return
		}
		writeText(w, http.StatusOK, msgStatusUpdated)
	}
}

func history(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := svc.History(r.Context())
		if err != nil {
			logStoreError(logger, r, "history", err)
			writeText(w, http.StatusInternalServerError, msgHistoryFailed)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

func taskID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// decodeBody treats an empty body as an empty object.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func logStoreError(logger *slog.Logger, r *http.Request, op string, err error) {
	logger.Error("store_error",
		slog.String("op", op),
		slog.String("error", err.Error()),
		slog.String("req_id", chimw.GetReqID(r.Context())),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
