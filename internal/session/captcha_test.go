package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecaptchaVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "shh", r.PostForm.Get("secret"))
		assert.Equal(t, "10.0.0.1", r.PostForm.Get("remoteip"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := NewRecaptcha("shh", srv.URL, time.Second)
	ctx := context.Background()

	assert.NoError(t, v.Verify(ctx, "good", "10.0.0.1"))
	assert.ErrorIs(t, v.Verify(ctx, "bad", "10.0.0.1"), ErrCaptchaFailed)
	assert.ErrorIs(t, v.Verify(ctx, "", "10.0.0.1"), ErrCaptchaFailed)
}

func TestRecaptchaTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	err := NewRecaptcha("shh", srv.URL, 20*time.Millisecond).Verify(context.Background(), "good", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCaptchaFailed)
}
