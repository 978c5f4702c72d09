// Package mailer is the email fallback channel of the notification
// subsystem.
//
// Emails back up live push: they are rendered from per-kind templates
// (unknown kinds fall back to a generic template) and sent by a bounded pool
// of background workers, fully decoupled from the request path. Transport
// errors never leave the package - a failed send is logged and reported as
// delivered=false.
//
// Two EmailSender transports are provided: a Postmark client for production
// and a DevSender that writes emails to disk for local development.
package mailer
