package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/krshsl/brandcast/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorPublish(t *testing.T) {
	requests := make(chan map[string]interface{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/post", r.URL.Path)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests <- body
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "success", "id": "ayr-123"})
	}))
	defer server.Close()

	client := NewAggregatorClient(server.URL, "test-key", time.Second)
	at := time.Date(2026, time.December, 1, 9, 30, 0, 0, time.UTC)
	id, err := client.Publish(context.Background(), PublishRequest{
		Platform:     models.PlatformLinkedIn,
		Text:         "hello",
		MediaURL:     "https://cdn.example.com/a.png",
		ScheduleDate: &at,
	})
	require.NoError(t, err)
	assert.Equal(t, "ayr-123", id)

	received := <-requests
	assert.Equal(t, "hello", received["post"])
	assert.Equal(t, []interface{}{"linkedin"}, received["platforms"])
	assert.Equal(t, []interface{}{"https://cdn.example.com/a.png"}, received["mediaUrls"])
	assert.Equal(t, "2026-12-01T09:30:00Z", received["scheduleDate"])
}

func TestAggregatorErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusBadRequest, `{"status": "error", "message": "Duplicate post"}`, "Duplicate post"},
		{"error list", http.StatusBadRequest, `{"errors": ["too long", "bad media"]}`, "too long; bad media"},
		{"error status on 200", http.StatusOK, `{"status": "error", "error": "Not linked"}`, "Not linked"},
		{"no message", http.StatusForbidden, `{}`, "Posting failed (status 403). Please ensure your TikTok account is connected."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewAggregatorClient(server.URL, "key", time.Second)
			_, err := client.Publish(context.Background(), PublishRequest{Platform: models.PlatformTikTok, Text: "x"})
			var aggErr *AggregatorError
			require.ErrorAs(t, err, &aggErr)
			assert.Equal(t, tt.status, aggErr.StatusCode)
			assert.Equal(t, tt.message, aggErr.Message)
		})
	}
}

func TestAggregatorTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewAggregatorClient(server.URL, "key", 20*time.Millisecond)
	_, err := client.Publish(context.Background(), PublishRequest{Platform: models.PlatformTwitter, Text: "x"})
	require.Error(t, err)
	assert.Equal(t, "Request timed out", err.Error())
}

func TestAggregatorListAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		w.Write([]byte(`{"activeSocialAccounts": ["linkedin", "Instagram", "pinterest", {"platform": "twitter", "accountId": "tw-9", "isActive": false}]}`))
	}))
	defer server.Close()

	accounts, err := NewAggregatorClient(server.URL, "key", time.Second).ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []SocialAccount{
		{Platform: models.PlatformLinkedIn, AccountID: "linkedin", IsActive: true},
		{Platform: models.PlatformInstagram, AccountID: "Instagram", IsActive: true},
		{Platform: models.PlatformTwitter, AccountID: "tw-9", IsActive: false},
	}, accounts)
}

func TestAggregatorDeleteAndAnalytics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/post":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "ayr-1", body["id"])
			w.Write([]byte(`{"status": "success"}`))
		case r.URL.Path == "/analytics/post":
			assert.Equal(t, "ayr-1", r.URL.Query().Get("id"))
			w.Write([]byte(`{"linkedin": {"likes": 4}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewAggregatorClient(server.URL, "key", time.Second)
	require.NoError(t, client.DeletePost(context.Background(), "ayr-1"))

	metrics, err := client.GetAnalytics(context.Background(), "ayr-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"linkedin": {"likes": 4}}`, string(metrics))

	assert.False(t, NewAggregatorClient("", "", 0).Configured())
}
