package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() Payload {
	return Payload{
		Title: "Flood risk high",
		Body:  "Risk score 78/100.",
		Topic: Topic,
		Data:  Data{Lat: -6.2088, Lng: 106.8456, Risk: 78, Level: "high"},
	}
}

func TestPushClient_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/push", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, Topic, p.Topic)
		assert.Equal(t, 78, p.Data.Risk)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewPushClient(srv.URL, "test-key", 5*time.Second, discardLogger())
	assert.NoError(t, c.Send(context.Background(), testPayload()))
}

func TestPushClient_Send_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer srv.Close()

	c := NewPushClient(srv.URL, "bad-key", 5*time.Second, discardLogger())
	err := c.Send(context.Background(), testPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestPushClient_Send_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewPushClient(srv.URL, "test-key", 50*time.Millisecond, discardLogger())
	assert.Error(t, c.Send(context.Background(), testPayload()))
}
