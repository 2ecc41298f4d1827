package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutoring/core"
	logsvc "github.com/trezcool/tutoring/services/logger"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	ResetSentMessages()
	conf := &core.Config{AppName: "tutoring", DefaultFromEmail: mail.Address{Name: "Tutoring", Address: "noreply@tutoring.test"}}
	svc := NewConsoleServiceMock(conf, logsvc.NewNopLogger())

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Jane", Address: "jane@test.com"}},
			Subject:      "Your login details",
			TemplateName: "login_credentials",
			TemplateData: map[string]string{"Name": "Jane", "Email": "jane@test.com", "Password": "s3cr3t"},
		},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "dropped"},
	)

	require.Len(t, SentMessages, 1)
	msg, ok := LastSentMessage()
	require.True(t, ok)
	assert.Contains(t, msg.TextContent, "Hi Jane,")
	assert.Contains(t, msg.TextContent, "Temporary password: s3cr3t")
	assert.Contains(t, msg.HTMLContent, "s3cr3t")

	ResetSentMessages()
	_, ok = LastSentMessage()
	assert.False(t, ok)
}
