package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/Leihyn/sentifee/internal/platform/errors"
)

type feeResponse struct {
	Fee               uint64 `json:"fee"`
	Score             uint64 `json:"score"`
	Stale             bool   `json:"stale"`
	SecondsUntilStale int64  `json:"seconds_until_stale"`
}

func (s *Server) handleGetFee(c echo.Context) error {
	quote := s.app.Fee(c.Request().Context())

	resp := feeResponse{
		Fee:               quote.Fee,
		Score:             quote.Score,
		Stale:             quote.Stale,
		SecondsUntilStale: int64(quote.TimeUntilStale / time.Second),
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type sentimentStateResponse struct {
	Score                     uint64    `json:"score"`
	LastUpdate                time.Time `json:"last_update"`
	Alpha                     uint64    `json:"alpha"`
	StalenessThresholdSeconds int64     `json:"staleness_threshold_seconds"`
	Stale                     bool      `json:"stale"`
	Owner                     string    `json:"owner"`
	PrimaryKeeper             string    `json:"primary_keeper"`
	Keepers                   []string  `json:"keepers"`
}

func (s *Server) handleGetSentiment(c echo.Context) error {
	view := s.app.State(c.Request().Context())

	keepers := make([]string, len(view.Keepers))
	for i, k := range view.Keepers {
		keepers[i] = string(k)
	}

	resp := sentimentStateResponse{
		Score:                     view.Score,
		LastUpdate:                view.LastUpdate,
		Alpha:                     view.Alpha,
		StalenessThresholdSeconds: int64(view.StalenessThreshold / time.Second),
		Stale:                     view.Stale,
		Owner:                     string(view.Owner),
		PrimaryKeeper:             string(view.PrimaryKeeper),
		Keepers:                   keepers,
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type updateSentimentRequest struct {
	Score *uint64 `json:"score"`
}

type updateSentimentResponse struct {
	Previous uint64    `json:"previous"`
	Raw      uint64    `json:"raw"`
	Score    uint64    `json:"score"`
	Fee      uint64    `json:"fee"`
	At       time.Time `json:"at"`
}

func (s *Server) handleUpdateSentiment(c echo.Context) error {
	caller, err := callerPrincipal(c)
	if err != nil {
		return err
	}

	var req updateSentimentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Score == nil {
		return apperrors.ValidationError("score is required")
	}

	result, err := s.app.UpdateSentiment(c.Request().Context(), caller, *req.Score)
	if err != nil {
		return err
	}

	resp := updateSentimentResponse{
		Previous: result.Previous,
		Raw:      result.Raw,
		Score:    result.Score,
		Fee:      result.Fee,
		At:       result.At,
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
