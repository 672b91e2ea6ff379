package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecideValidation(t *testing.T) {
	cases := []struct {
		outcome ValidationOutcome
		valid   bool
		action  SessionAction
	}{
		{ValidationValid, true, SessionKeep},
		{ValidationNoToken, false, SessionKeep},
		{ValidationRejected, false, SessionLogout},
		{ValidationHTTPError, false, SessionLogout},
		{ValidationTransportError, false, SessionLogout},
		{ValidationMalformed, false, SessionLogout},
	}

	for _, tc := range cases {
		t.Run(tc.outcome.String(), func(t *testing.T) {
			valid, action := DecideValidation(tc.outcome)
			assert.Equal(t, tc.valid, valid)
			assert.Equal(t, tc.action, action)
		})
	}
}

func TestSession_Active(t *testing.T) {
	assert.True(t, Session{Token: "t", Email: "ana@example.com"}.Active())
	assert.False(t, Session{Email: "ana@example.com"}.Active())
}

func TestConnectionStatus_LastWriteWins(t *testing.T) {
	c := NewConnectionStatus()
	assert.False(t, c.Snapshot().Connected)

	now := time.Now()
	c.MarkDown(now, errors.New("dial tcp: refused"))
	snap := c.Snapshot()
	assert.False(t, snap.Connected)
	assert.Equal(t, "dial tcp: refused", snap.LastError)

	c.MarkUp(now.Add(time.Second))
	snap = c.Snapshot()
	assert.True(t, snap.Connected)
	assert.Empty(t, snap.LastError)
	assert.Equal(t, now.Add(time.Second), snap.LastCheck)
}

func TestErrors_AuthExpiredChain(t *testing.T) {
	assert.True(t, IsAuthExpired(ErrNoToken))
	assert.True(t, errors.Is(ErrNoToken, ErrAuthExpired))

	var httpErr *HTTPError
	wrapped := &AuthError{Message: "bad password", Err: &HTTPError{Status: 401, Message: "bad password"}}
	assert.True(t, errors.As(wrapped, &httpErr))
	assert.Equal(t, 401, httpErr.Status)
	assert.False(t, IsAuthExpired(wrapped))
}
