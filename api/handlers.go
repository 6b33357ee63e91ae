package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
)

// Register wires up all API routes on the provided Echo instance. REST
// mutations act as actorID; event-surface intents carry their own actor.
func Register(e *echo.Echo, board Board, streams Streams, actorID string, logger *log.Logger) {
	e.GET("/api/tasks", getTasks(board, logger))
	e.GET("/api/tasks/:id", getTask(board))
	e.POST("/api/tasks", postTask(board, actorID))
	e.PUT("/api/tasks/:id", putTask(board, actorID))
	e.DELETE("/api/tasks/:id", deleteTask(board, actorID))
	e.GET("/api/tasks/:id/activity", getTaskActivity(board))
	e.GET("/api/activity", getRecentActivity(board))
	e.GET("/api/users", getUsers(board))
	e.GET("/api/users/:id", getUser(board))
	e.GET("/api/stream", streamEvents(streams, logger))
	e.POST("/api/intents", postIntents(board, logger))
	e.GET("/api/health", health())
}

func health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

// writeError maps domain sentinels onto status codes.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.String(http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return c.String(http.StatusBadRequest, err.Error())
	default:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, err.Error())
	}
}

func getTasks(board Board, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics := newBoardRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		status := strings.TrimSpace(c.QueryParam("status"))
		metrics.SetStatusFilter(status)
		if status != "" && !domain.ValidStatus(status) {
			metrics.SetErrorStage("invalid_status")
			err = c.String(http.StatusBadRequest, "invalid status")
			return err
		}

		fetchStart := time.Now()
		tasks, fetchErr := board.ListTasks(ctx, status)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getTask(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		view, err := board.GetTask(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func postTask(board Board, actorID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		fields, err := decodeTaskPayload(c)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		view, err := board.CreateTask(c.Request().Context(), actorID, fields)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, view)
	}
}

func putTask(board Board, actorID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		fields, err := decodeTaskPayload(c)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		view, err := board.UpdateTask(c.Request().Context(), actorID, c.Param("id"), fields)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func deleteTask(board Board, actorID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := board.DeleteTask(c.Request().Context(), actorID, c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getTaskActivity(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		entries, err := board.TaskActivity(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, entries)
	}
}

func getRecentActivity(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 0
		if v := strings.TrimSpace(c.QueryParam("limit")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return c.String(http.StatusBadRequest, "invalid limit")
			}
			limit = n
		}
		entries, err := board.RecentActivity(c.Request().Context(), limit)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, entries)
	}
}

func getUsers(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := board.ListUsers(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, users)
	}
}

func getUser(board Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := board.GetUser(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, u)
	}
}

func decodeTaskPayload(c echo.Context) (domain.TaskFields, error) {
	lr := io.LimitReader(c.Request().Body, taskBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()

	var payload taskBody
	if err := dec.Decode(&payload); err != nil {
		return domain.TaskFields{}, err
	}
	return payload.Fields()
}
