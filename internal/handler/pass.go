package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/eventhub/internal/service"
)

// PassHandler serves the session-authenticated pass endpoints.  JWT and role
// checks are done by middleware before these run.
type PassHandler struct {
	Issuer   *service.Issuer
	Verifier *service.Verifier
	Log      *slog.Logger
}

func NewPassHandler(iss *service.Issuer, ver *service.Verifier, log *slog.Logger) *PassHandler {
	if iss == nil || ver == nil {
		panic("nil service passed to NewPassHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &PassHandler{Issuer: iss, Verifier: ver, Log: log}
}

type issueReq struct {
	EventID json.RawMessage `json:"eventId"`
}

type passReq struct {
	Pass json.RawMessage `json:"pass"`
}

// IssuePass handles POST /student/issue-pass.  It returns 201 with a newly
// minted passId, or 200 with the caller's existing live pass.
func (h *PassHandler) IssuePass(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req issueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	eventID, ok := parseID(req.EventID)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "eventId must be a positive integer"})
	}

	res, err := h.Issuer.IssuePass(c.Request().Context(), eventID, userID)
	if err != nil {
		return h.fail(c, "issue pass", err)
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{"passId": res.PassID})
}

// VerifyPass handles POST /staff/verify-pass.  The body carries the token
// decoded from a scanned QR code.  Used and unknown passes answer 200 with
// valid=false.
func (h *PassHandler) VerifyPass(c echo.Context) error {
	var req passReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	token, ok := parseToken(req.Pass)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pass is required"})
	}
	res, err := h.Verifier.Verify(c.Request().Context(), token)
	if err != nil {
		return h.fail(c, "verify pass", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *PassHandler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, service.ErrBadInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid input"})
	case errors.Is(err, service.ErrUpstream):
		h.Log.Error(op+": upstream failure", "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "pass service unavailable"})
	default:
		h.Log.Error(op+": internal fault", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
