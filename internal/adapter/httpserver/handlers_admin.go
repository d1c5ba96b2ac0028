package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Leihyn/sentifee/internal/domain"
	apperrors "github.com/Leihyn/sentifee/internal/platform/errors"
)

type setKeeperRequest struct {
	Keeper     string `json:"keeper"`
	Authorized *bool  `json:"authorized"`
}

func (s *Server) handleSetKeeperAuthorization(c echo.Context) error {
	caller, err := callerPrincipal(c)
	if err != nil {
		return err
	}

	var req setKeeperRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Keeper == "" {
		return apperrors.ValidationError("keeper is required")
	}
	if req.Authorized == nil {
		return apperrors.ValidationError("authorized is required")
	}

	if err := s.app.SetKeeperAuthorization(c.Request().Context(), caller, domain.Principal(req.Keeper), *req.Authorized); err != nil {
		return err
	}
	return okResponse(c)
}

type setPrimaryKeeperRequest struct {
	Keeper string `json:"keeper"`
}

func (s *Server) handleSetPrimaryKeeper(c echo.Context) error {
	caller, err := callerPrincipal(c)
	if err != nil {
		return err
	}

	var req setPrimaryKeeperRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Keeper == "" {
		return apperrors.ValidationError("keeper is required")
	}

	if err := s.app.SetPrimaryKeeper(c.Request().Context(), caller, domain.Principal(req.Keeper)); err != nil {
		return err
	}
	return okResponse(c)
}

type setAlphaRequest struct {
	Alpha *uint64 `json:"alpha"`
}

func (s *Server) handleSetAlpha(c echo.Context) error {
	caller, err := callerPrincipal(c)
	if err != nil {
		return err
	}

	var req setAlphaRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Alpha == nil {
		return apperrors.ValidationError("alpha is required")
	}

	if err := s.app.SetAlpha(c.Request().Context(), caller, *req.Alpha); err != nil {
		return err
	}
	return okResponse(c)
}

type setStalenessThresholdRequest struct {
	Threshold string `json:"threshold"`
}

func (s *Server) handleSetStalenessThreshold(c echo.Context) error {
	caller, err := callerPrincipal(c)
	if err != nil {
		return err
	}

	var req setStalenessThresholdRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	threshold, err := time.ParseDuration(req.Threshold)
	if err != nil {
		return apperrors.ValidationError("threshold must be a duration like \"6h\"").WithField("threshold", req.Threshold)
	}

	if err := s.app.SetStalenessThreshold(c.Request().Context(), caller, threshold); err != nil {
		return err
	}
	return okResponse(c)
}

type transferOwnershipRequest struct {
	Owner string `json:"owner"`
}

func (s *Server) handleTransferOwnership(c echo.Context) error {
	caller, err := callerPrincipal(c)
	if err != nil {
		return err
	}

	var req transferOwnershipRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Owner == "" {
		return apperrors.ValidationError("owner is required")
	}

	if err := s.app.TransferOwnership(c.Request().Context(), caller, domain.Principal(req.Owner)); err != nil {
		return err
	}
	return okResponse(c)
}

func okResponse(c echo.Context) error {
	if err := c.JSON(http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
