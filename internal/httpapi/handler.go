package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/journal"
	"market-watch-bot/internal/logger"
	"market-watch-bot/internal/tasks"
)

// TaskQueue is the insert side of the task store.
type TaskQueue interface {
	Enqueue(ctx context.Context, description string, dueAt time.Time) (int64, error)
	ListPending(ctx context.Context) ([]tasks.Task, error)
}

// MessageLog is the read side of the journal.
type MessageLog interface {
	interfaces.Journal
	Recent(ctx context.Context, limit int) ([]journal.Message, error)
}

// Handler serves the task and journal routes.
type Handler struct {
	Tasks    TaskQueue
	Journal  MessageLog
	Clock    interfaces.Clock
	Location *time.Location
}

// Response is the envelope of every JSON reply.
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Response{Status: status, Message: http.StatusText(status), Data: data})
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	e.GET("/tasks", h.listTasks)
	e.POST("/tasks", h.enqueueTask)
	if h.Journal != nil {
		e.GET("/messages", h.recentMessages)
	}
}

func (h *Handler) health(c echo.Context) error {
	return respond(c, http.StatusOK, map[string]string{"state": "ok"})
}

func (h *Handler) listTasks(c echo.Context) error {
	pending, err := h.Tasks.ListPending(c.Request().Context())
	if err != nil {
		logger.ErrorWithErr(c.Request().Context(), "List tasks failed", err)
		return respond(c, http.StatusInternalServerError, "Something went wrong")
	}
	if pending == nil {
		pending = []tasks.Task{}
	}
	return respond(c, http.StatusOK, pending)
}

// EnqueueRequest carries either a free-form command ("Programa: X en N minutos")
// or an explicit description with a minute offset.
type EnqueueRequest struct {
	Command     string `json:"command" validate:"max=2000"`
	Description string `json:"description" validate:"required_without=Command,max=2000"`
	InMinutes   int    `json:"in_minutes" validate:"gte=0,lte=10080"` // tasks.MaxOffsetMinutes
	Username    string `json:"username" default:"api" validate:"max=64"`
}

type enqueueResponse struct {
	ID          int64  `json:"id"`
	DueAt       string `json:"due_at"`
	Description string `json:"description"`
}

func (h *Handler) enqueueTask(c echo.Context) error {
	ctx := c.Request().Context()

	var req EnqueueRequest
	if errs := readAndValidateRequest(c, &req); errs != nil {
		return respond(c, http.StatusBadRequest, errs)
	}

	now := h.now()
	description := strings.TrimSpace(req.Description)
	due := now.Add(time.Duration(req.InMinutes) * time.Minute)
	if req.Command != "" {
		var err error
		description, due, err = tasks.ParseCommand(req.Command, now)
		if err != nil {
			return respond(c, http.StatusBadRequest, []ValidationError{{
				Code: "ERR_COMMAND", Field: "Command", Message: err.Error(),
			}})
		}
	} else if description == "" {
		return respond(c, http.StatusBadRequest, []ValidationError{{
			Code: "ERR_REQUIRED", Field: "Description", Message: "Description is required",
		}})
	}

	id, err := h.Tasks.Enqueue(ctx, description, due)
	if err != nil {
		logger.ErrorWithErr(ctx, "Enqueue task failed", err)
		return respond(c, http.StatusInternalServerError, "Something went wrong")
	}

	if h.Journal != nil {
		raw := req.Command
		if raw == "" {
			raw = description
		}
		if err := h.Journal.Record(ctx, req.Username, raw); err != nil {
			logger.Warn(ctx, "Failed to journal command", "error", err)
		}
	}

	dueAt := due.In(h.location()).Format(tasks.DueLayout)
	logger.Info(ctx, "Task scheduled", "task_id", id, "due_at", dueAt, "username", req.Username)
	return respond(c, http.StatusCreated, enqueueResponse{ID: id, DueAt: dueAt, Description: description})
}

func (h *Handler) recentMessages(c echo.Context) error {
	var q struct {
		Limit int `query:"limit"`
	}
	if err := c.Bind(&q); err != nil {
		return respond(c, http.StatusBadRequest, validationErrors(err))
	}
	msgs, err := h.Journal.Recent(c.Request().Context(), q.Limit)
	if err != nil {
		logger.ErrorWithErr(c.Request().Context(), "Read journal failed", err)
		return respond(c, http.StatusInternalServerError, "Something went wrong")
	}
	if msgs == nil {
		msgs = []journal.Message{}
	}
	return respond(c, http.StatusOK, msgs)
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock.Now()
}

func (h *Handler) location() *time.Location {
	if h.Location == nil {
		return time.Local
	}
	return h.Location
}
