package mailer

import (
	"context"

	"github.com/mpetrenko/contacts-api/pkg/helpers"
)

// QueueNotifier enqueues email jobs on RabbitMQ for the email worker to
// deliver. Publishing failures surface to the caller, which logs them;
// sending itself happens out of process.
type QueueNotifier struct {
	Pub *helpers.RabbitPublisher
}

func NewQueueNotifier(pub *helpers.RabbitPublisher) *QueueNotifier {
	return &QueueNotifier{Pub: pub}
}

func (n *QueueNotifier) SendConfirmation(ctx context.Context, email, link string) error {
	return n.Pub.PublishJSON(ctx, EmailJob{
		To:       email,
		Template: TemplateVerifyEmail,
		Data:     map[string]any{"Link": link, "Email": email},
	})
}

func (n *QueueNotifier) SendPasswordReset(ctx context.Context, email, link string) error {
	return n.Pub.PublishJSON(ctx, EmailJob{
		To:       email,
		Template: TemplateResetPassword,
		Data:     map[string]any{"Link": link, "Email": email},
	})
}
