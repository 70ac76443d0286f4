package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/serenablake/practice-site/internal/models"
)

// NewInquiryTicket returns a reference like SB-20260131-032508-A1B2C3D4.
func NewInquiryTicket() string {
	now := time.Now().UTC().Format("20060102-150405")
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if len(id) > 8 {
		id = id[:8]
	}
	return "SB-" + now + "-" + id
}

// LogSink records each submission in the log. Personal fields go through
// the logger's redaction hook.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Accept(payload models.ContactFields) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithFields(logrus.Fields{
		"name":           payload.Name,
		"email":          payload.Email,
		"phone":          payload.Phone,
		"preferred_time": payload.PreferredTime,
		"message_len":    len(payload.Message),
		"consent":        payload.Consent,
	}).Info("contact form submitted")
}

// InquiryMailer delivers an inquiry to the practice.
type InquiryMailer interface {
	SendInquiryEmail(ctx context.Context, ticket string, fields models.ContactFields) error
}

// MailSink mails each accepted submission in the background. Failures are
// logged and never reach the form.
type MailSink struct {
	mailer  InquiryMailer
	logger  logrus.FieldLogger
	timeout time.Duration

	mu     sync.Mutex
	onSent func(err error)

	wg sync.WaitGroup
}

func NewMailSink(mailer InquiryMailer, logger logrus.FieldLogger) *MailSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MailSink{
		mailer:  mailer,
		logger:  logger,
		timeout: 15 * time.Second,
	}
}

// OnSent registers a callback run after every delivery attempt. It may be
// called while deliveries are in flight; each attempt uses the callback
// registered when it finishes.
func (s *MailSink) OnSent(fn func(err error)) {
	s.mu.Lock()
	s.onSent = fn
	s.mu.Unlock()
}

func (s *MailSink) sentHook() func(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onSent
}

func (s *MailSink) Accept(payload models.ContactFields) {
	s.Deliver(NewInquiryTicket(), payload)
}

// Deliver mails payload under an existing ticket.
func (s *MailSink) Deliver(ticket string, payload models.ContactFields) {
	if s == nil || s.mailer == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		err := s.mailer.SendInquiryEmail(ctx, ticket, payload)
		if err != nil {
			s.logger.WithError(err).WithField("ticket", ticket).Error("inquiry email failed")
		} else {
			s.logger.WithField("ticket", ticket).Info("inquiry email sent")
		}
		if onSent := s.sentHook(); onSent != nil {
			onSent(err)
		}
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (s *MailSink) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
