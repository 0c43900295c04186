package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// Register wires up all API routes on the provided Echo instance. Unmatched
// paths and methods answer 405 through the installed error handler.
func Register(e *echo.Echo, store Storage, outbox *Outbox, hub *Hub, logger *log.Logger) {
	if store == nil {
		panic("storage is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	var events Publisher = discardPublisher{}
	if outbox != nil {
		events = outbox
	}

	e.JSONSerializer = sonicSerializer{}
	e.HTTPErrorHandler = httpErrorHandler(logger)

	g := e.Group("/api/v1")
	g.GET("/boards", listBoards(store))
	g.POST("/boards", createBoard(store, events))
	g.DELETE("/boards", deleteAllBoards(store, events))
	g.GET("/boards/:boardId", getBoard(store))
	g.PUT("/boards/:boardId", updateBoard(store, events))
	g.DELETE("/boards/:boardId", deleteBoard(store, events))

	g.GET("/boards/:boardId/tasks", listTasks(store))
	g.POST("/boards/:boardId/tasks", createTask(store, events))
	g.GET("/boards/:boardId/tasks/:taskId", getTask(store))
	g.PATCH("/boards/:boardId/tasks/:taskId", patchTask(store, events))
	g.DELETE("/boards/:boardId/tasks/:taskId", deleteTask(store, events))

	// Ids never contain a slash; deeper paths are not operations.
	g.Any("/boards/:boardId/*", notSupported)
	g.Any("/boards/:boardId/tasks/:taskId/*", notSupported)

	if hub != nil {
		g.GET("/events", streamEvents(hub))
	}
	e.GET("/healthz", healthz(outbox, hub))
}

func notSupported(echo.Context) error {
	return echo.ErrMethodNotAllowed
}

type discardPublisher struct{}

func (discardPublisher) Publish(domain.Event) {}

type healthResponse struct {
	Status      string       `json:"status"`
	Subscribers int          `json:"subscribers"`
	Outbox      *OutboxStats `json:"outbox,omitempty"`
}

func healthz(outbox *Outbox, hub *Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := healthResponse{Status: "ok"}
		if outbox != nil {
			stats := outbox.Stats()
			resp.Outbox = &stats
		}
		if hub != nil {
			resp.Subscribers = hub.Subscribers()
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// readBody returns the raw request body. Decoding is left to the domain
// inputs so that a missing board still wins over a malformed body.
func readBody(c echo.Context) ([]byte, error) {
	body := c.Request().Body
	if body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	// Decompressed bodies are not covered by the BodyLimit middleware.
	if len(data) > maxBodySize {
		return nil, echo.ErrStatusRequestEntityTooLarge
	}
	return data, nil
}

func listBoards(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		boards, err := store.ListBoards(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		metricsFrom(c).SetItemsReturned(len(boards))
		return c.JSON(http.StatusOK, boards)
	}
}

func getBoard(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		board, err := store.GetBoard(c.Request().Context(), c.Param("boardId"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func createBoard(store Storage, events Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := readBody(c)
		if err != nil {
			return err
		}
		board, err := store.CreateBoard(c.Request().Context(), domain.DecodeBoardInput(data))
		if err != nil {
			return writeError(c, err)
		}
		events.Publish(newEvent(domain.EntityBoard, board.ID, domain.BoardCreated, board))
		return c.JSON(http.StatusCreated, board)
	}
}

func updateBoard(store Storage, events Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := readBody(c)
		if err != nil {
			return err
		}
		board, err := store.UpdateBoard(c.Request().Context(), c.Param("boardId"), domain.DecodeBoardInput(data))
		if err != nil {
			return writeError(c, err)
		}
		events.Publish(newEvent(domain.EntityBoard, board.ID, domain.BoardUpdated, board))
		return c.JSON(http.StatusOK, board)
	}
}

func deleteBoard(store Storage, events Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		board, err := store.DeleteBoard(c.Request().Context(), c.Param("boardId"))
		if err != nil {
			return writeError(c, err)
		}
		events.Publish(newEvent(domain.EntityBoard, board.ID, domain.BoardDeleted, board))
		return c.JSON(http.StatusOK, board)
	}
}

func deleteAllBoards(store Storage, events Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		boards, err := store.DeleteAll(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		metricsFrom(c).SetItemsReturned(len(boards))
		events.Publish(newEvent(domain.EntityBoard, "", domain.BoardsCleared, boards))
		return c.JSON(http.StatusOK, boards)
	}
}

func listTasks(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		var sortBy *string
		if values, ok := c.QueryParams()["sort"]; ok {
			key := ""
			if len(values) > 0 {
				key = values[0]
			}
			sortBy = &key
		}

		tasks, err := store.ListTasks(c.Request().Context(), c.Param("boardId"), sortBy)
		if err != nil {
			return writeError(c, err)
		}
		metricsFrom(c).SetItemsReturned(len(tasks))
		return c.JSON(http.StatusOK, tasks)
	}
}

func getTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := store.GetTask(c.Request().Context(), c.Param("boardId"), c.Param("taskId"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func createTask(store Storage, events Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := readBody(c)
		if err != nil {
			return err
		}
		task, err := store.CreateTask(c.Request().Context(), c.Param("boardId"), domain.DecodeTaskInput(data))
		if err != nil {
			return writeError(c, err)
		}
		events.Publish(newEvent(domain.EntityTask, task.ID, domain.TaskCreated, task))
		return c.JSON(http.StatusCreated, task)
	}
}

func patchTask(store Storage, events Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := readBody(c)
		if err != nil {
			return err
		}
		boardID := c.Param("boardId")
		task, err := store.PatchTask(c.Request().Context(), boardID, c.Param("taskId"), domain.DecodeTaskPatch(data))
		if err != nil {
			return writeError(c, err)
		}
		eventType := domain.TaskUpdated
		if task.BoardID != boardID {
			eventType = domain.TaskMoved
		}
		events.Publish(newEvent(domain.EntityTask, task.ID, eventType, task))
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Storage, events Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := store.DeleteTask(c.Request().Context(), c.Param("boardId"), c.Param("taskId"))
		if err != nil {
			return writeError(c, err)
		}
		events.Publish(newEvent(domain.EntityTask, task.ID, domain.TaskDeleted, task))
		return c.JSON(http.StatusOK, task)
	}
}
