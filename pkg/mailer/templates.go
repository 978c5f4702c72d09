package mailer

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/coursehub/notify/pkg/notification"
)

//go:embed templates/*.html
var templateFS embed.FS

// genericTemplate is the fallback for kinds without a dedicated template.
// An unrecognized kind must degrade to it rather than fail the send.
const genericTemplate = "generic"

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// subjects maps notification kinds to email subject lines.
var subjects = map[notification.Kind]string{
	notification.KindNewLesson:         "A new lesson is available",
	notification.KindNewCourse:         "A new course is available",
	notification.KindCommentReply:      "Someone replied to your comment",
	notification.KindLikeReceived:      "Your content received a like",
	notification.KindReferralEarned:    "You earned a referral reward",
	notification.KindWelcome:           "Welcome aboard",
	notification.KindCertificateIssued: "Your certificate is ready",
}

// Email is a rendered outbound message ready for the transport.
type Email struct {
	Subject  string
	BodyHTML string
}

// Render selects the template for kind and renders it with vars.
// Unknown kinds fall back to the generic template.
func Render(kind notification.Kind, vars map[string]any) (Email, error) {
	name := strings.ToLower(string(kind))
	if templates.Lookup(name+".html") == nil {
		name = genericTemplate
	}

	subject, ok := subjects[kind]
	if !ok {
		subject = "You have a new notification"
	}

	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name+".html", vars); err != nil {
		return Email{}, fmt.Errorf("render %s template: %w", name, err)
	}

	return Email{Subject: subject, BodyHTML: sb.String()}, nil
}
