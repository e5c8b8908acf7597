package mailservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sushihentaime/blogdesk/internal/common"
	"golang.org/x/exp/rand"
)

const (
	defaultMaxRetries = 5
	baseDelay         = 500 * time.Millisecond
)

var ErrDeliveriesClosed = errors.New("user created deliveries closed")

func NewMailService(mb common.MessageConsumer, cfg Config, logger *slog.Logger) *MailService {
	return &MailService{
		mb:            mb,
		m:             NewMailer(cfg, NewTemplate()),
		logger:        logger,
		activationURL: strings.TrimSuffix(cfg.BaseURL, "/") + "/v1/users/activate",
		maxRetries:    defaultMaxRetries,
	}
}

// Run sends an activation email for every user.created event until ctx is
// done or the broker closes the delivery channel.
func (s *MailService) Run(ctx context.Context) error {
	msgs, err := s.mb.Consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}

			var data activationEmail
			if err := json.Unmarshal(msg.Body, &data); err != nil {
				s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
			} else {
				s.sendActivationEmail(ctx, data)
			}

			if msg.Acknowledger != nil {
				msg.Ack(false)
			}

		case <-ctx.Done():
			s.logger.Info("stopping activation mailer")
			return nil
		}
	}
}

// sendActivationEmail retries with exponential backoff and full jitter. A
// message that still fails is dropped after logging.
func (s *MailService) sendActivationEmail(ctx context.Context, data activationEmail) {
	payload := struct {
		ActivationToken string
		ActivationURL   string
	}{
		ActivationToken: data.Token,
		ActivationURL:   s.activationURL,
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.m.send(data.Email, payload, activationTemplate)
		if err == nil {
			s.logger.Info("activation email sent", slog.String("email", data.Email))
			return
		}

		delay := time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
		s.logger.Info("delaying activation email", slog.String("email", data.Email), slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}

	s.logger.Error("could not send activation email", slog.String("email", data.Email))
}
