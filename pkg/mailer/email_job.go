package mailer

// Template names understood by the email worker.
const (
	TemplateVerifyEmail   = "verify_email"
	TemplateResetPassword = "reset_password"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either a Template with Data, or explicit Subject/Text/HTML.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
