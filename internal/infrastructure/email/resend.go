package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/campus-connect/api/internal/config"
)

// resendSender posts to the Resend HTTP API.
type resendSender struct {
	apiKey  string
	from    string
	client  *http.Client
	baseURL string
}

func newResendSender(cfg *config.Config) (*resendSender, error) {
	if cfg.ResendAPIKey == "" {
		return nil, errors.New("RESEND_API_KEY not set")
	}
	return &resendSender{
		apiKey:  cfg.ResendAPIKey,
		from:    cfg.ResendFrom,
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: "https://api.resend.com",
	}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *resendSender) Send(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("marshal resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
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
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("resend: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
