package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"workflow-api/domain"
)

// Identity routes for the local variant: credentials live on the roster and
// the server issues its own session tokens. Hosted deployments delegate both
// to the external provider and answer 404 here. Sign-out is token disposal on
// the client; there is no server-side session state to clear.

type sessionResponse struct {
	Token  string         `json:"token"`
	Member *domain.Member `json:"member"`
}

func (h *handlers) signIn(c echo.Context) error {
	if !h.LocalIdentity {
		return c.NoContent(http.StatusNotFound)
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid body")))
	}
	m, err := h.Members.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return h.session(c, http.StatusOK, m)
}

func (h *handlers) signUp(c echo.Context) error {
	if !h.LocalIdentity {
		return c.NoContent(http.StatusNotFound)
	}
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid body")))
	}
	m, err := h.Members.SignUp(c.Request().Context(), domain.NewMemberInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return h.session(c, http.StatusCreated, m)
}

func (h *handlers) session(c echo.Context, status int, m *domain.Member) error {
	issuer, ok := h.Auth.(TokenIssuer)
	if !ok {
		return respondError(c, errors.New("token issuer not configured"))
	}
	token, err := issuer.IssueToken(m.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status, sessionResponse{Token: token, Member: m})
}
