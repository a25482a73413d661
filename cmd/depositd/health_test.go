package main

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depositprotocol/internal/deploy"
	"depositprotocol/internal/protocol"
)

func TestHealthChecker(t *testing.T) {
	founder := protocol.AddressFromLabel("founder")
	stack, err := deploy.Deploy(deploy.Options{Founder: founder}, nil)
	require.NoError(t, err)
	require.NoError(t, stack.Token.Mint(founder, big.NewInt(10), nil))

	hc := NewHealthChecker("test")
	registerChecks(hc, stack)

	health := hc.CheckHealth()
	assert.Equal(t, Healthy, health.OverallStatus)
	require.Len(t, health.Components, 3)
	assert.Equal(t, "governance", health.Components[0].Name)

	require.NoError(t, stack.Governance.Pause(founder))
	assert.Equal(t, Degraded, hc.CheckHealth().OverallStatus)

	hc.Register("broken", func() (HealthStatus, string) { return Unhealthy, "down" })
	rec := httptest.NewRecorder()
	hc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body SystemHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, Unhealthy, body.OverallStatus)
	assert.Equal(t, "test", body.Version)
}
