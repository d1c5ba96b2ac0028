package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leihyn/sentifee/internal/domain"
)

func TestHandleSetKeeperAuthorization_Success(t *testing.T) {
	var gotCaller, gotKeeper domain.Principal
	var gotAuthorized bool
	appMock := &mockAppService{
		setKeeperFn: func(_ context.Context, caller, keeper domain.Principal, authorized bool) error {
			gotCaller, gotKeeper, gotAuthorized = caller, keeper, authorized
			return nil
		},
	}
	srv := newTestServer(t, appMock)

	rec := doRequest(srv, http.MethodPost, "/api/admin/keepers", testOwnerToken, `{"keeper": "keeper-2", "authorized": true}`)
	require.Equal(t, 200, rec.Code)

	assert.Equal(t, domain.Principal("owner-principal"), gotCaller)
	assert.Equal(t, domain.Principal("keeper-2"), gotKeeper)
	assert.True(t, gotAuthorized)
}

func TestHandleSetKeeperAuthorization_MissingFields(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := doRequest(srv, http.MethodPost, "/api/admin/keepers", testOwnerToken, `{"authorized": true}`)
	assert.Equal(t, 400, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/admin/keepers", testOwnerToken, `{"keeper": "keeper-2"}`)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleSetKeeperAuthorization_NonOwner(t *testing.T) {
	appMock := &mockAppService{
		setKeeperFn: func(_ context.Context, caller, _ domain.Principal, _ bool) error {
			return fmt.Errorf("%w: %q is not the owner", domain.ErrUnauthorized, caller)
		},
	}
	srv := newTestServer(t, appMock)

	rec := doRequest(srv, http.MethodPost, "/api/admin/keepers", testKeeperToken, `{"keeper": "keeper-2", "authorized": true}`)
	assert.Equal(t, 403, rec.Code)
}

func TestHandleSetPrimaryKeeper_Success(t *testing.T) {
	var gotKeeper domain.Principal
	appMock := &mockAppService{
		setPrimaryKeeperFn: func(_ context.Context, _, keeper domain.Principal) error {
			gotKeeper = keeper
			return nil
		},
	}
	srv := newTestServer(t, appMock)

	rec := doRequest(srv, http.MethodPut, "/api/admin/primary-keeper", testOwnerToken, `{"keeper": "keeper-2"}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, domain.Principal("keeper-2"), gotKeeper)
}

func TestHandleSetAlpha_Success(t *testing.T) {
	var gotAlpha uint64
	appMock := &mockAppService{
		setAlphaFn: func(_ context.Context, _ domain.Principal, alpha uint64) error {
			gotAlpha = alpha
			return nil
		},
	}
	srv := newTestServer(t, appMock)

	rec := doRequest(srv, http.MethodPut, "/api/admin/alpha", testOwnerToken, `{"alpha": 50}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, uint64(50), gotAlpha)
}

func TestHandleSetAlpha_OutOfRange(t *testing.T) {
	appMock := &mockAppService{
		setAlphaFn: func(_ context.Context, _ domain.Principal, alpha uint64) error {
			return fmt.Errorf("%w: alpha %d exceeds 100", domain.ErrOutOfRange, alpha)
		},
	}
	srv := newTestServer(t, appMock)

	rec := doRequest(srv, http.MethodPut, "/api/admin/alpha", testOwnerToken, `{"alpha": 150}`)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleSetStalenessThreshold_Success(t *testing.T) {
	var gotThreshold time.Duration
	appMock := &mockAppService{
		setStalenessThresholdFn: func(_ context.Context, _ domain.Principal, threshold time.Duration) error {
			gotThreshold = threshold
			return nil
		},
	}
	srv := newTestServer(t, appMock)

	rec := doRequest(srv, http.MethodPut, "/api/admin/staleness-threshold", testOwnerToken, `{"threshold": "2h"}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, 2*time.Hour, gotThreshold)
}

func TestHandleSetStalenessThreshold_BadDuration(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := doRequest(srv, http.MethodPut, "/api/admin/staleness-threshold", testOwnerToken, `{"threshold": "soon"}`)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleSetStalenessThreshold_BelowMinimum(t *testing.T) {
	appMock := &mockAppService{
		setStalenessThresholdFn: func(_ context.Context, _ domain.Principal, threshold time.Duration) error {
			return fmt.Errorf("%w: staleness threshold %s below minimum 1h0m0s", domain.ErrInvalidConfiguration, threshold)
		},
	}
	srv := newTestServer(t, appMock)

	rec := doRequest(srv, http.MethodPut, "/api/admin/staleness-threshold", testOwnerToken, `{"threshold": "30m"}`)
	assert.Equal(t, 422, rec.Code)
}

func TestHandleTransferOwnership_Success(t *testing.T) {
	var gotOwner domain.Principal
	appMock := &mockAppService{
		transferOwnershipFn: func(_ context.Context, _, newOwner domain.Principal) error {
			gotOwner = newOwner
			return nil
		},
	}
	srv := newTestServer(t, appMock)

	rec := doRequest(srv, http.MethodPost, "/api/admin/owner", testOwnerToken, `{"owner": "new-owner"}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, domain.Principal("new-owner"), gotOwner)
}

func TestAdminRoutes_RequireIdentity(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := doRequest(srv, http.MethodPut, "/api/admin/alpha", "", `{"alpha": 50}`)
	assert.Equal(t, 401, rec.Code)
}
