package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Leihyn/sentifee/internal/domain"
	"github.com/Leihyn/sentifee/internal/platform/correlation"
	apperrors "github.com/Leihyn/sentifee/internal/platform/errors"
)

const contextKeyPrincipal = "principal"

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// requireIdentity resolves the bearer token to a principal and stores it in
// the request context. It establishes WHO is calling; whether that principal
// may perform the operation is decided by the engine.
func (s *Server) requireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		principal, ok := s.tokens[token]
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "unknown bearer token")
		}

		c.Set(contextKeyPrincipal, principal)
		return next(c)
	}
}

func callerPrincipal(c echo.Context) (domain.Principal, error) {
	principal, ok := c.Get(contextKeyPrincipal).(domain.Principal)
	if !ok {
		return "", apperrors.InternalError("no principal in request context", nil)
	}
	return principal, nil
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := apperrors.AsStructuredError(err)
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if principal := c.Get(contextKeyPrincipal); principal != nil {
		attrs = append(attrs, "principal", principal)
	}

	switch err.Type {
	case apperrors.TypeUnauthorized:
		slog.Warn("Unauthorized operation", attrs...)
	case apperrors.TypeOutOfRange, apperrors.TypeValidation, apperrors.TypeInvalidConfiguration:
		slog.Info("Rejected request", attrs...)
	case apperrors.TypeNotFound:
		slog.Info("Not found", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.Error("External service error", attrs...)
	default:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.Error("Internal error", attrs...)
	}
}
