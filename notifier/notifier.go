// file: notifier/notifier.go

package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"vh-recruit-api/logger"
	"vh-recruit-api/model"
)

// SMTPNotifier delivers one-time codes to the account's own email address
// over plain SMTP. Delivery mechanics beyond handing the message to the
// relay are not this subsystem's concern.
type SMTPNotifier struct {
	Addr string // host:port of the relay
	From string
}

func NewSMTPNotifier(addr, from string) *SMTPNotifier {
	return &SMTPNotifier{Addr: addr, From: from}
}

func (n *SMTPNotifier) SendOTP(ctx context.Context, account *model.Account, code string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your verification code\r\n\r\nYour one-time code is %s. It expires in a few minutes.\r\n",
		n.From, account.Email, code)

	if err := smtp.SendMail(n.Addr, nil, n.From, []string{account.Email}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", account.Email, err)
	}
	return nil
}

// LogNotifier writes the code to the application log instead of sending
// it anywhere. Development only.
type LogNotifier struct{}

func (LogNotifier) SendOTP(ctx context.Context, account *model.Account, code string) error {
	logger.Log.WithField("email", account.Email).Infof("OTP code (dev delivery): %s", code)
	return nil
}
