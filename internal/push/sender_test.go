package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirsoacha/resilience-api/internal/models"
)

func browserSubscription(t *testing.T, endpoint string) models.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return models.PushSubscription{
		Endpoint: endpoint,
		Keys: models.SubscriptionKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	}
}

func TestWebPushSender_Send(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	keys, err := GenerateVAPIDKeys()
	require.NoError(t, err)
	sender := NewWebPushSender(VAPID{
		PublicKey:  keys.PublicKey,
		PrivateKey: keys.PrivateKey,
		Subject:    "mailto:admin@dir-soacha.org",
	}, 3600, srv.Client())

	status, err := sender.Send(context.Background(), browserSubscription(t, srv.URL+"/push/abc"),
		[]byte(`{"title":"t"}`), models.SeverityHigh)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)

	assert.Equal(t, "3600", gotHeaders.Get("TTL"))
	assert.Equal(t, "high", gotHeaders.Get("Urgency"))
	assert.Equal(t, "aes128gcm", gotHeaders.Get("Content-Encoding"))
	assert.True(t, strings.HasPrefix(strings.ToLower(gotHeaders.Get("Authorization")), "vapid "))
}

func TestWebPushSender_Gone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		w.Write([]byte("subscription expired"))
	}))
	defer srv.Close()

	keys, err := GenerateVAPIDKeys()
	require.NoError(t, err)
	sender := NewWebPushSender(VAPID{PublicKey: keys.PublicKey, PrivateKey: keys.PrivateKey}, 60, srv.Client())

	status, err := sender.Send(context.Background(), browserSubscription(t, srv.URL), []byte(`{}`), models.SeverityLow)
	require.Error(t, err)
	assert.Equal(t, http.StatusGone, status)
	assert.Contains(t, err.Error(), "subscription expired")
}

func TestUrgencyFor(t *testing.T) {
	assert.Equal(t, webpush.UrgencyHigh, urgencyFor(models.SeverityHigh))
	assert.Equal(t, webpush.UrgencyNormal, urgencyFor(models.SeverityMedium))
	assert.Equal(t, webpush.UrgencyLow, urgencyFor(models.SeverityLow))
}
