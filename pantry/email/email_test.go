package email

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/mailcheck/isemail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap/zaptest"
)

func TestNewSenderDefaults(t *testing.T) {
	s := NewSender(Config{Host: "smtp.example.com"}, nil, nil)
	assert.Equal(t, 587, s.cfg.Port)
	assert.True(t, s.cfg.UseTLS)

	s = NewSender(Config{Host: "smtp.example.com", Port: 465}, nil, nil)
	assert.False(t, s.cfg.UseTLS)
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	s := NewSender(Config{FromAddress: "noreply@example.com"}, isemail.New(), zaptest.NewLogger(t))

	tests := []struct {
		name   string
		msg    Message
		field  string
		status isemail.Code
	}{
		{"valid", Message{To: []string{"user@example.com"}}, "", isemail.Valid},
		{"bad recipient", Message{To: []string{"user@example.com", "a..b@example.com"}}, "to", isemail.ErrConsecutiveDots},
		{"bad reply-to", Message{To: []string{"user@example.com"}, ReplyTo: "@example.com"}, "reply-to", isemail.ErrNoLocalPart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Check(ctx, tt.msg)
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var re *RecipientError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, tt.field, re.Field)
			assert.Equal(t, tt.status, re.Result.Status)
		})
	}

	assert.ErrorIs(t, s.Check(ctx, Message{}), ErrNoRecipients)
}

func TestCheckFromAddress(t *testing.T) {
	s := NewSender(Config{FromAddress: "noreply@"}, nil, nil)
	var re *RecipientError
	err := s.Check(context.Background(), Message{To: []string{"user@example.com"}})
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "from", re.Field)
	assert.Contains(t, err.Error(), "ERR_NODOMAIN")
}

func TestCheckUsesConfiguredOptions(t *testing.T) {
	strict := isemail.Options{Strict: true}
	s := NewSender(Config{FromAddress: "noreply@example.com", Options: &strict}, nil, nil)

	msg := Message{To: []string{`"john"@example.com`}}
	var re *RecipientError
	require.ErrorAs(t, s.Check(context.Background(), msg), &re)
	assert.Equal(t, isemail.RFC5321QuotedString, re.Result.Status)

	lenient := NewSender(Config{FromAddress: "noreply@example.com"}, nil, nil)
	assert.NoError(t, lenient.Check(context.Background(), msg))
}

func TestSendRejectsBeforeDialing(t *testing.T) {
	s := NewSender(Config{Host: "smtp.invalid", FromAddress: "noreply@example.com"}, nil, nil)
	err := s.SendSimple(context.Background(), "example@@example.com", "hi", "body")
	var re *RecipientError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, isemail.ErrConsecutiveAts, re.Result.Status)
}

func TestBuild(t *testing.T) {
	s := NewSender(Config{FromAddress: "noreply@example.com", FromName: "Mail Check"}, nil, nil)

	_, err := s.build(Message{To: []string{"user@example.com"}})
	assert.Error(t, err, "empty body")

	m, err := s.build(Message{
		To:       []string{"a@example.com", "b@example.com"},
		Subject:  "Report",
		TextBody: "see attachment",
		HTMLBody: "<p>see attachment</p>",
		ReplyTo:  "ops@example.com",
		Attachments: []Attachment{
			{Filename: "report.csv", ContentType: "text/csv", Data: []byte("email\n")},
		},
	})
	require.NoError(t, err)

	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, rcpts)
	assert.Equal(t, []string{"Report"}, m.GetGenHeader(mail.HeaderSubject))
	require.Len(t, m.GetAttachments(), 1)
	assert.Equal(t, "report.csv", m.GetAttachments()[0].Name)
}

func TestClientOptions(t *testing.T) {
	s := NewSender(Config{Username: "u", Password: "p"}, nil, nil)
	assert.Len(t, s.clientOptions(), 6)

	s = NewSender(Config{UseSSL: true}, nil, nil)
	assert.Len(t, s.clientOptions(), 3)
}
