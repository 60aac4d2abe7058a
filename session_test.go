package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shift_handover/internal/shift"
)

func TestSessionKeys(t *testing.T) {
	hash1, block1, err := sessionKeys([]byte("secret"))
	require.NoError(t, err)
	assert.Len(t, hash1, 64)
	assert.Len(t, block1, 32)
	assert.NotEqual(t, hash1[:32], block1)

	hash2, block2, err := sessionKeys([]byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)
	assert.Equal(t, block1, block2)

	hash3, _, err := sessionKeys([]byte("other"))
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash3)
}

func TestSessionCookie_SurvivesRestartWithSameSecret(t *testing.T) {
	first, _ := newTestServer(t, nil)
	rec := do(t, first.routes(), "PUT", "/api/shift", ShiftRequest{Date: "1.1.2027", Type: "morning"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()

	withCookies := func() *http.Request {
		req := httptest.NewRequest("GET", "/", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return req
	}

	second, _ := newTestServer(t, nil)
	assert.Equal(t, shift.Info{Date: "1.1.2027", Type: shift.Morning}, second.currentShift(withCookies()))

	other, err := newSessionStore("", zap.NewNop())
	require.NoError(t, err)
	second.sessions = other
	assert.Equal(t, shift.Current(testNow), second.currentShift(withCookies()), "foreign cookie falls back to the running shift")
}
