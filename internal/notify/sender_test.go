package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStubEmailSender_Send(t *testing.T) {
	err := NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "homeowner@example.com", Subject: "s"})
	assert.NoError(t, err)
}

func TestEmailMessageHTMLFallback(t *testing.T) {
	assert.Equal(t, "<b>x</b>", EmailMessage{Body: "x", HTML: "<b>x</b>"}.htmlBody())
	assert.Equal(t, "<p>a &lt; b<br>next</p>", EmailMessage{Body: "a < b\nnext"}.htmlBody())
}

func TestProviderErrorMessages(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	assert.Equal(t, "notify: smtp send failed: dial tcp: refused", (&ProviderError{Provider: "smtp", Err: cause}).Error())
	assert.Equal(t, "notify: sendgrid returned status 401", (&ProviderError{Provider: "sendgrid", Status: 401}).Error())
	assert.ErrorIs(t, &ProviderError{Provider: "ses", Err: cause}, cause)
}
