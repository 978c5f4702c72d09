package mailer

// Config holds email channel configuration.
// Postmark tokens are optional to support development environments where the
// DevSender is used instead. SenderEmail and SupportEmail establish the
// sender identity and reply-to behavior for all outbound emails.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`

	Workers   int `env:"MAILER_WORKERS" envDefault:"4"`     // Workers is the number of background send workers.
	QueueSize int `env:"MAILER_QUEUE_SIZE" envDefault:"256"` // QueueSize bounds the pending task buffer.
}
