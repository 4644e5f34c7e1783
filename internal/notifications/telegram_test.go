package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramNotifier_SendAlert(t *testing.T) {
	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("tok", "42").WithBaseURL(srv.URL + "/")
	require.NoError(t, n.SendAlert(context.Background(), LevelSuccess, "sweep done"))

	assert.Equal(t, "/bottok/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Contains(t, gotText, "✅")
	assert.Contains(t, gotText, "sweep done")
}

func TestTelegramNotifier_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewTelegramNotifier("bad", "1").WithBaseURL(srv.URL).SendAlert(context.Background(), LevelError, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	assert.NoError(t, n.SendAlert(context.Background(), LevelInfo, "ignored"))
}
