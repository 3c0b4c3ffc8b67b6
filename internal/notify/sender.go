package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"carelink/health-portal/internal/config"
)

// Sender delivers a notification to its recipient.
type Sender interface {
	Send(n Notification) error
}

// emailSender delivers notifications through the external email API as a
// JSON POST with a bearer key.
type emailSender struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

// NewEmailSender constructs a sender for the configured email delivery API.
func NewEmailSender(cfg config.NotifyConfig) Sender {
	return &emailSender{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.FromAddress,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *emailSender) Send(n Notification) error {
	payload, err := json.Marshal(map[string]string{
		"from":    s.from,
		"to":      n.Recipient,
		"subject": n.Subject,
		"text":    n.Body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}
	return nil
}

// MemorySender stores notifications in memory for inspection/testing.
type MemorySender struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

// NewMemorySender constructs an empty memory sender.
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

// Fail makes every subsequent Send return the given error.
func (m *MemorySender) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Send records the notification.
func (m *MemorySender) Send(n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

// Sent returns a copy of notifications seen so far.
func (m *MemorySender) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.sent))
	copy(out, m.sent)
	return out
}
