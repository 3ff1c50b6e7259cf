package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/api"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/labstack/echo/v4"
)

// Request is the body of POST /api.
type Request struct {
	Operation string          `json:"operation"`
	Variables json.RawMessage `json:"variables"`
}

func (s *HTTPServer) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Server is up and running"})
}

func (s *HTTPServer) handleAPI(c echo.Context) error {
	var req Request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil || req.Operation == "" {
		return c.JSON(http.StatusBadRequest, api.Fail(common.NewValidationError("invalid request body")))
	}

	env, err := s.dispatcher.Call(c.Request().Context(), req.Operation, req.Variables)
	if err != nil {
		if errors.Is(err, api.ErrUnknownOperation) {
			return c.JSON(http.StatusNotFound, api.Envelope{Message: err.Error(), Kind: api.KindNotFound})
		}
		return c.JSON(http.StatusInternalServerError, api.Fail(err))
	}

	return c.JSON(http.StatusOK, env)
}

// identity resolves the bearer token, if any. Invalid tokens are logged and
// the request continues anonymously.
func (s *HTTPServer) identity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if token == "" {
			return next(c)
		}

		id, err := s.tokens.Parse(token)
		if err != nil {
			s.logger.Warn(c.Request().Context(), "invalid access token", "uri", c.Request().RequestURI, "error", err)
			return next(c)
		}

		req := c.Request()
		c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), id)))
		return next(c)
	}
}
