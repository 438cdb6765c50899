package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/services"
)

func TestPushServiceBatches(t *testing.T) {
	var (
		mu      sync.Mutex
		batches []int
		auth    []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msgs []services.PushMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msgs))

		mu.Lock()
		batches = append(batches, len(msgs))
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()

		tickets := make([]map[string]string, len(msgs))
		for i := range tickets {
			tickets[i] = map[string]string{"status": "ok"}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": tickets})
	}))
	defer srv.Close()

	messages := make([]services.PushMessage, 150)
	for i := range messages {
		messages[i] = services.PushMessage{To: fmt.Sprintf("ExponentPushToken[%d]", i), Title: "Hi", Body: "There"}
	}

	push := services.NewPushService(srv.URL, "expo-token")
	require.NoError(t, push.Send(context.Background(), messages))

	assert.Equal(t, []int{100, 50}, batches)
	assert.Equal(t, []string{"Bearer expo-token", "Bearer expo-token"}, auth)
}

func TestPushServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	msgs := []services.PushMessage{{To: "ExponentPushToken[a]", Title: "t", Body: "b"}}
	assert.Error(t, services.NewPushService(srv.URL, "").Send(context.Background(), msgs))
	assert.NoError(t, services.NewPushService("", "").Send(context.Background(), msgs), "no endpoint disables push")
}

func TestIsExpoPushToken(t *testing.T) {
	cases := map[string]bool{
		"ExponentPushToken[xxxx]": true,
		"ExpoPushToken[yyyy]":     true,
		"ExponentPushToken[open":  false,
		"fcm:abcdef":              false,
		"":                        false,
	}
	for token, want := range cases {
		assert.Equal(t, want, services.IsExpoPushToken(token), token)
	}
}
