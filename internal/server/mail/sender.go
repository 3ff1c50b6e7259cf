// Package mail delivers one-time codes to account holders.
package mail

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
)

// Kind selects the message template.
type Kind string

const (
	// KindOTP carries a one-time verification or reset code.
	KindOTP Kind = "otp"
)

// Sender delivers a templated message. Send blocks until the provider has
// accepted or rejected the message.
type Sender interface {
	Send(ctx context.Context, to, subject, code string, kind Kind) error
}

// New returns the Sender selected by cfg.MailDriver.
func New(cfg *config.Config, logger logging.Logger) (Sender, error) {
	switch cfg.MailDriver {
	case config.MailResend:
		return NewResendSender(cfg.ResendAPIKey, cfg.MailFrom, cfg.ResendBaseURL)
	case config.MailLog, "":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.MailDriver)
	}
}
