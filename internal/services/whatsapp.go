package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// WhatsappService talks to a self-hosted WAHA gateway to deliver WhatsApp
// notifications for users who prefer that channel over email.
type WhatsappService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewWhatsappService() *WhatsappService {
	url := os.Getenv("WHATSAPP_BASE_URL")
	if url == "" {
		url = "http://waha:3000"
	}
	return &WhatsappService{
		baseURL: url,
		apiKey:  os.Getenv("WHATSAPP_API_KEY"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *WhatsappService) makeRequest(method, endpoint string, payload interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, fmt.Sprintf("%s%s", s.baseURL, endpoint), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func (s *WhatsappService) sendSeen(chatID string) error {
	return s.makeRequest("POST", "/api/sendSeen", map[string]string{
		"chatId":  chatID,
		"session": "default",
	})
}

func (s *WhatsappService) startTyping(chatID string) error {
	return s.makeRequest("POST", "/api/startTyping", map[string]string{
		"chatId":  chatID,
		"session": "default",
	})
}

func (s *WhatsappService) stopTyping(chatID string) error {
	return s.makeRequest("POST", "/api/stopTyping", map[string]string{
		"chatId":  chatID,
		"session": "default",
	})
}

func (s *WhatsappService) sendText(chatID, text string) error {
	return s.makeRequest("POST", "/api/sendText", map[string]string{
		"chatId":  chatID,
		"text":    text,
		"session": "default",
	})
}

// NormalizeChatID normalizes WhatsApp chat IDs by adding required suffixes
// and standardizing country codes
func NormalizeChatID(chatID string) string {
	chatID = strings.TrimSpace(chatID)

	// Group IDs are already correct
	if strings.HasSuffix(chatID, "@g.us") {
		return chatID
	}

	chatID = strings.TrimSuffix(chatID, "@c.us")

	// Standardize Nigerian numbers starting with '0' to '234'
	if strings.HasPrefix(chatID, "0") {
		chatID = "234" + strings.TrimPrefix(chatID, "0")
	}

	return chatID + "@c.us"
}

// SendMessage sends a message with authentic behavior (seen -> typing -> stop typing -> send)
func (s *WhatsappService) SendMessage(chatID, text string) error {
	chatID = NormalizeChatID(chatID)

	if err := s.sendSeen(chatID); err != nil {
		return fmt.Errorf("failed to send seen: %w", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := s.startTyping(chatID); err != nil {
		return fmt.Errorf("failed to start typing: %w", err)
	}
	time.Sleep(150 * time.Millisecond)

	if err := s.stopTyping(chatID); err != nil {
		return fmt.Errorf("failed to stop typing: %w", err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := s.sendText(chatID, text); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}

	return nil
}
