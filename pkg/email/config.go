package email

import "regexp"

// Config describes email sender settings loadable from the environment.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"EMAIL_SENDER" envDefault:"no-reply@kerjago.id"`
	SupportEmail         string `env:"EMAIL_SUPPORT" envDefault:"support@kerjago.id"`
}

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
