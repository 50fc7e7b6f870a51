package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// NotificationResponse — строка очереди из API.
type NotificationResponse struct {
	ID              string         `json:"id"`
	CorrelationID   string         `json:"correlation_id"`
	UserID          int64          `json:"user_id"`
	Channel         string         `json:"channel"`
	AlertType       string         `json:"alert_type"`
	EntityType      string         `json:"entity_type"`
	EntityID        int64          `json:"entity_id"`
	SavedSearchID   int64          `json:"saved_search_id"`
	Recipient       string         `json:"recipient"`
	InteractionKind string         `json:"interaction_kind"`
	Status          string         `json:"status"`
	AttemptCount    int            `json:"attempt_count"`
	NextAttemptAt   string         `json:"next_attempt_at,omitempty"`
	Provider        string         `json:"provider"`
	ProviderStatus  string         `json:"provider_status,omitempty"`
	Responded       bool           `json:"responded"`
	ResponseValue   string         `json:"response_value,omitempty"`
	ResponseAt      string         `json:"response_at,omitempty"`
	Payload         map[string]any `json:"payload,omitempty"`
	CreatedAt       string         `json:"created_at"`
}

// --- Request types ---

// EnqueueRequest — постановка вопроса в очередь.
type EnqueueRequest struct {
	UserID          int64          `json:"user_id"`
	Channel         string         `json:"channel"`
	Provider        string         `json:"provider,omitempty"`
	Recipient       string         `json:"recipient"`
	AlertType       string         `json:"alert_type"`
	EntityType      string         `json:"entity_type"`
	EntityID        int64          `json:"entity_id"`
	SavedSearchID   int64          `json:"saved_search_id,omitempty"`
	InteractionKind string         `json:"interaction_kind,omitempty"`
	Payload         map[string]any `json:"payload,omitempty"`
}

// ListNotificationsOpts — параметры фильтрации списка.
type ListNotificationsOpts struct {
	Status string
	Limit  int
}

// envelope покрывает оба формата ответа API: {data} и {data, total}.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
	Error *struct {
		Code          string `json:"code"`
		Message       string `json:"message"`
		CorrelationID string `json:"correlation_id"`
	} `json:"error"`
}

// Client — HTTP-клиент для Confirma API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт Client для API по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EnqueueNotification ставит вопрос в очередь.
func (c *Client) EnqueueNotification(req EnqueueRequest) (*NotificationResponse, error) {
	var n NotificationResponse
	err := c.call(http.MethodPost, "/api/v1/notifications", req, &n)
	return &n, err
}

// GetNotification возвращает строку очереди по ID.
func (c *Client) GetNotification(id string) (*NotificationResponse, error) {
	var n NotificationResponse
	err := c.call(http.MethodGet, "/api/v1/notifications/"+id, nil, &n)
	return &n, err
}

// GetByCorrelation возвращает строку по внешнему correlation id.
func (c *Client) GetByCorrelation(id string) (*NotificationResponse, error) {
	var n NotificationResponse
	err := c.call(http.MethodGet, "/api/v1/notifications/correlation/"+id, nil, &n)
	return &n, err
}

// ListNotifications возвращает строки очереди.
func (c *Client) ListNotifications(opts ListNotificationsOpts) ([]NotificationResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/api/v1/notifications"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var notifications []NotificationResponse
	err := c.call(http.MethodGet, path, nil, &notifications)
	return notifications, err
}

// call выполняет запрос и разворачивает envelope в result.
// Ошибки API превращаются в error вида "CODE: message".
func (c *Client) call(method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if env.Error == nil {
			return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
		}
		if env.Error.CorrelationID != "" {
			return fmt.Errorf("%s: %s (correlation %s)",
				env.Error.Code, env.Error.Message, env.Error.CorrelationID)
		}
		return fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
	}

	if result == nil {
		return nil
	}
	return json.Unmarshal(env.Data, result)
}
