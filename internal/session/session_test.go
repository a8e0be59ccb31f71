// internal/session/session_test.go
package session

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	Init()

	want := Session{
		ParticipantID: uuid.New(),
		RoomID:        uuid.New(),
		RoomCode:      "7F3K",
		IsHost:        true,
		Name:          "Ava",
	}

	token, err := CreateToken(want)
	require.NoError(t, err)

	got, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	Init()
	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestParseTokenRejectsForeignKey(t *testing.T) {
	Init()
	token, err := CreateToken(Session{ParticipantID: uuid.New(), RoomID: uuid.New()})
	require.NoError(t, err)

	// Rotating the keys invalidates previously issued tokens.
	Init()
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestWriteAndFromRequest(t *testing.T) {
	Init()

	want := Session{
		ParticipantID: uuid.New(),
		RoomID:        uuid.New(),
		RoomCode:      "ABCD",
		Name:          "Ben",
	}

	w := httptest.NewRecorder()
	require.NoError(t, Write(w, want))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	got, err := FromRequest(req)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestFromRequestWithoutCookie(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	got, err := FromRequest(req)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestClear(t *testing.T) {
	w := httptest.NewRecorder()
	Clear(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.Empty(t, cookies[0].Value)
}
