package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventhub/internal/repository"
	"github.com/iliyamo/eventhub/internal/service"
)

// InternalPassHandler exposes a PassStore over HTTP so other EventHub
// instances can use it as their remote store.  It talks to the store
// directly; events are published by the calling instance's services.
type InternalPassHandler struct {
	Store service.PassStore
	Log   *slog.Logger
}

func NewInternalPassHandler(store service.PassStore, log *slog.Logger) *InternalPassHandler {
	if store == nil {
		panic("nil store passed to NewInternalPassHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &InternalPassHandler{Store: store, Log: log}
}

type createPassReq struct {
	PassKey json.RawMessage `json:"passKey"`
	UserID  json.RawMessage `json:"user_id"`
	EventID json.RawMessage `json:"event_id"`
}

// GetPasses handles GET /internal/getPasses?user_id&event_id.  404 means the
// pair has no live pass and the caller should create one.
func (h *InternalPassHandler) GetPasses(c echo.Context) error {
	userID, ok1 := parseIDString(c.QueryParam("user_id"))
	eventID, ok2 := parseIDString(c.QueryParam("event_id"))
	if !ok1 || !ok2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and event_id must be positive integers"})
	}
	p, found, err := h.Store.FindLivePass(c.Request().Context(), userID, eventID)
	if err != nil {
		return h.storeFail(c, "find live pass", err)
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no live pass"})
	}
	return c.JSON(http.StatusOK, p)
}

// CreatePass handles POST /internal/passes.
func (h *InternalPassHandler) CreatePass(c echo.Context) error {
	var req createPassReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	passKey, okKey := parseToken(req.PassKey)
	userID, okUser := parseID(req.UserID)
	eventID, okEvent := parseID(req.EventID)
	if !okKey || !okUser || !okEvent {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passKey, user_id and event_id are required"})
	}
	if len(passKey) > repository.MaxPassIDLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passKey too long"})
	}
	err := h.Store.Insert(c.Request().Context(), passKey, userID, eventID)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, echo.Map{"passKey": passKey})
	case errors.Is(err, repository.ErrLivePassExists), errors.Is(err, repository.ErrDuplicatePass):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		return h.storeFail(c, "insert pass", err)
	}
}

// Verify handles POST /internal/verify.
func (h *InternalPassHandler) Verify(c echo.Context) error {
	var req passReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	token, ok := parseToken(req.Pass)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pass is required"})
	}
	res, err := h.Store.Verify(c.Request().Context(), token)
	if err != nil {
		return h.storeFail(c, "verify pass", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *InternalPassHandler) storeFail(c echo.Context, op string, err error) error {
	if errors.Is(err, repository.ErrInvalidInput) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid input"})
	}
	h.Log.Error("internal "+op+" failed", "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store failure"})
}
