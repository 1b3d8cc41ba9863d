package email

import (
	"context"
	"fmt"

	"github.com/campus-connect/api/internal/config"
)

// Sender dispatches a single email and reports completion synchronously:
// the verification issuer only reports success once the send has gone through.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// New builds the Sender selected by cfg.EmailProvider.
func New(cfg *config.Config) (Sender, error) {
	switch cfg.EmailProvider {
	case "smtp":
		return newSMTPSender(cfg), nil
	case "resend":
		return newResendSender(cfg)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}
