package domain

import (
	"fmt"
	"reflect"
)

// MessageTemplate is a fully rendered notification. Composition happens
// upstream; the sender only reads these fields.
type MessageTemplate struct {
	Subject       string `json:"subject"`
	BodyHTML      string `json:"body_html,omitempty"`
	PlainText     string `json:"plain_text,omitempty"`
	SystemMessage string `json:"system_message,omitempty"`
	SystemURL     string `json:"system_url,omitempty"`
	SenderEmail   string `json:"sender_email,omitempty"`
	SenderName    string `json:"sender_name,omitempty"`
}

// EffectiveSenderName is the template sender name, falling back to the
// template sender address.
func (t MessageTemplate) EffectiveSenderName() string {
	if t.SenderName != "" {
		return t.SenderName
	}
	return t.SenderEmail
}

// Body returns the content to send and whether it is HTML. HTML wins when
// present.
func (t MessageTemplate) Body() (string, bool) {
	if t.BodyHTML != "" {
		return t.BodyHTML, true
	}
	return t.PlainText, false
}

// MessageJob is one batch request: a template plus the optional per-job
// sender override.
type MessageJob struct {
	Template    MessageTemplate `json:"template"`
	SenderEmail string          `json:"sender_email,omitempty"`
	SenderName  string          `json:"sender_name,omitempty"`
}

// SenderIdentity is the resolved From of a batch.
type SenderIdentity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (s SenderIdentity) String() string {
	if s.Name == "" || s.Name == s.Email {
		return s.Email
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// Notifiable is the optional capability of a recipient whose delivery status
// is tracked by the host.
type Notifiable interface {
	SetResult(kind OutcomeKind)
	SetNotified(notified bool)
}

// Recipient is a single subscriber of a batch. Status is nil when the
// subscriber does not track delivery.
type Recipient struct {
	Email  string
	Status Notifiable
}

// Notifiable returns the recipient's status tracker. A nil pointer stored
// in Status counts as absent.
func (r Recipient) Notifiable() (Notifiable, bool) {
	if r.Status == nil {
		return nil, false
	}
	if v := reflect.ValueOf(r.Status); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, false
	}
	return r.Status, true
}

// OutboundMessage is exactly what a transport delivers: one sender, one
// recipient, one body.
type OutboundMessage struct {
	From    SenderIdentity
	To      string
	Subject string
	Body    string
	IsHTML  bool
}
