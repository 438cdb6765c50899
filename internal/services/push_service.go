package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Expo accepts at most this many messages per request.
const expoBatchSize = 100

// PushMessage is one Expo push notification.
type PushMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
	Sound string         `json:"sound,omitempty"`
}

// PushService sends notifications through the Expo push API.
type PushService struct {
	endpoint    string
	accessToken string
	client      *http.Client
}

// NewPushService creates a PushService.
func NewPushService(endpoint, accessToken string) *PushService {
	return &PushService{
		endpoint:    endpoint,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

type expoTicket struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type expoResponse struct {
	Data []expoTicket `json:"data"`
}

// Send delivers messages in batches. Tickets reporting an error are logged;
// only transport failures are returned.
func (s *PushService) Send(ctx context.Context, messages []PushMessage) error {
	if s.endpoint == "" || len(messages) == 0 {
		return nil
	}

	for start := 0; start < len(messages); start += expoBatchSize {
		end := min(start+expoBatchSize, len(messages))
		if err := s.sendBatch(ctx, messages[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PushService) sendBatch(ctx context.Context, batch []PushMessage) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Push] Failed to send batch: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo returned status %d", resp.StatusCode)
	}

	var out expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode expo response: %w", err)
	}
	for i, ticket := range out.Data {
		if ticket.Status == "error" && i < len(batch) {
			log.Printf("[Push] Ticket error for %s: %s", batch[i].To, ticket.Message)
		}
	}
	return nil
}

// IsExpoPushToken reports whether token looks like an Expo push token.
func IsExpoPushToken(token string) bool {
	if !strings.HasSuffix(token, "]") {
		return false
	}
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}
