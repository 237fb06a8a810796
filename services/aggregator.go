package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/krshsl/brandcast/models"
)

const (
	DefaultAggregatorURL     = "https://api.ayrshare.com/api"
	DefaultAggregatorTimeout = 30 * time.Second

	scheduleDateLayout = "2006-01-02T15:04:05Z"
)

// SocialAccount is one account connected at the aggregator.
type SocialAccount struct {
	Platform  models.Platform `json:"platform"`
	AccountID string          `json:"account_id"`
	IsActive  bool            `json:"is_active"`
}

type PublishRequest struct {
	Platform     models.Platform
	AccountID    string
	Text         string
	MediaURL     string
	ScheduleDate *time.Time
}

// Aggregator is the external publishing service holding the connected social accounts.
type Aggregator interface {
	Configured() bool
	ListAccounts(ctx context.Context) ([]SocialAccount, error)
	Publish(ctx context.Context, req PublishRequest) (string, error)
	DeletePost(ctx context.Context, platformPostID string) error
	GetAnalytics(ctx context.Context, platformPostID string) (json.RawMessage, error)
}

// AggregatorError is a failed aggregator call. StatusCode is zero for transport failures.
type AggregatorError struct {
	StatusCode int
	Message    string
}

func (e *AggregatorError) Error() string {
	return e.Message
}

// AggregatorClient talks to an Ayrshare-compatible REST API.
type AggregatorClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewAggregatorClient(baseURL, apiKey string, timeout time.Duration) *AggregatorClient {
	if baseURL == "" {
		baseURL = DefaultAggregatorURL
	}
	if timeout <= 0 {
		timeout = DefaultAggregatorTimeout
	}
	return &AggregatorClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether credentials exist. Without them every caller runs in simulation mode.
func (c *AggregatorClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// ListAccounts reads activeSocialAccounts, which may hold bare platform names or account objects.
func (c *AggregatorClient) ListAccounts(ctx context.Context) ([]SocialAccount, error) {
	var body struct {
		ActiveSocialAccounts []json.RawMessage `json:"activeSocialAccounts"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, "", &body); err != nil {
		return nil, err
	}

	var accounts []SocialAccount
	for _, raw := range body.ActiveSocialAccounts {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			if platform, ok := models.ParsePlatform(name); ok {
				accounts = append(accounts, SocialAccount{Platform: platform, AccountID: name, IsActive: true})
			}
			continue
		}

		var entry struct {
			Platform  string `json:"platform"`
			AccountID string `json:"accountId"`
			ID        string `json:"id"`
			IsActive  *bool  `json:"isActive"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		platform, ok := models.ParsePlatform(entry.Platform)
		if !ok {
			continue
		}
		account := SocialAccount{Platform: platform, AccountID: entry.AccountID, IsActive: true}
		if account.AccountID == "" {
			account.AccountID = entry.ID
		}
		if account.AccountID == "" {
			account.AccountID = entry.Platform
		}
		if entry.IsActive != nil {
			account.IsActive = *entry.IsActive
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// Publish posts immediately, or schedules when ScheduleDate is set, and returns the aggregator's post id.
func (c *AggregatorClient) Publish(ctx context.Context, req PublishRequest) (string, error) {
	payload := map[string]interface{}{
		"post":      req.Text,
		"platforms": []string{string(req.Platform)},
	}
	if req.MediaURL != "" {
		payload["mediaUrls"] = []string{req.MediaURL}
	}
	if req.ScheduleDate != nil {
		payload["scheduleDate"] = req.ScheduleDate.UTC().Format(scheduleDateLayout)
	}

	var body struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/post", payload, req.Platform.DisplayName(), &body); err != nil {
		return "", err
	}
	return body.ID, nil
}

func (c *AggregatorClient) DeletePost(ctx context.Context, platformPostID string) error {
	return c.do(ctx, http.MethodDelete, "/post", map[string]string{"id": platformPostID}, "", nil)
}

func (c *AggregatorClient) GetAnalytics(ctx context.Context, platformPostID string) (json.RawMessage, error) {
	var body json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/analytics/post?"+url.Values{"id": {platformPostID}}.Encode(), nil, "", &body); err != nil {
		return nil, err
	}
	return body, nil
}

// do sends one request and decodes a successful body into out. A 200 whose body
// reports "status": "error" is treated as a failure.
func (c *AggregatorClient) do(ctx context.Context, method, path string, payload any, platformName string, out any) error {
	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &AggregatorError{Message: "Request timed out"}
		}
		return &AggregatorError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AggregatorError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	var envelope map[string]interface{}
	_ = json.Unmarshal(raw, &envelope)

	if resp.StatusCode != http.StatusOK || envelope["status"] == "error" {
		message := extractErrorMessage(envelope)
		if message == "" && platformName != "" {
			message = fmt.Sprintf("Posting failed (status %d). Please ensure your %s account is connected.", resp.StatusCode, platformName)
		}
		if message == "" {
			message = fmt.Sprintf("aggregator returned status %d", resp.StatusCode)
		}
		return &AggregatorError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &AggregatorError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}

func extractErrorMessage(envelope map[string]interface{}) string {
	for _, key := range []string{"message", "error", "errors"} {
		switch value := envelope[key].(type) {
		case string:
			if value != "" {
				return value
			}
		case []interface{}:
			parts := make([]string, 0, len(value))
			for _, item := range value {
				parts = append(parts, fmt.Sprint(item))
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		case map[string]interface{}:
			if len(value) > 0 {
				encoded, _ := json.Marshal(value)
				return string(encoded)
			}
		}
	}
	return ""
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
