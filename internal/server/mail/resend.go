package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ResendSender posts messages to the Resend HTTP API.
type ResendSender struct {
	apiKey  string
	from    string
	client  *http.Client
	baseURL string
}

func NewResendSender(apiKey, from, baseURL string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, errors.New("RESEND_API_KEY not set")
	}

	return &ResendSender{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendSender) Send(ctx context.Context, to, subject, code string, kind Kind) error {
	html, err := render(kind, code)
	if err != nil {
		return err
	}

	b, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("send email: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
