package mailservice

import (
	"bytes"
	"sync"

	"github.com/go-mail/mail/v2"

	"github.com/sushihentaime/blogdesk/internal/common"
)

const activationTemplate = "activation_email.html"

type MailService struct {
	mb            common.MessageConsumer
	m             Mailer
	logger        MailLogger
	activationURL string
	maxRetries    int
}

type MailLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

// Config holds the SMTP settings and the public base URL used in links.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
	BaseURL  string
}

type Mail struct {
	mu     sync.Mutex
	dialer Dialer
	parser TemplateParser
	sender string
}

type Mailer interface {
	send(recipient string, data any, templateFile string) error
}

type Template struct{}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type TemplateParser interface {
	ParseTemplate(name string, data any) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer, error)
}

// activationEmail is the payload of a user.created event.
type activationEmail struct {
	Email string
	Token string
}
