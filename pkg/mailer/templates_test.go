package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/notify/pkg/notification"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		kind        notification.Kind
		vars        map[string]any
		wantSubject string
		wantInBody  string
	}{
		{
			name:        "new lesson",
			kind:        notification.KindNewLesson,
			vars:        map[string]any{"Message": "Lesson X is live", "courseTitle": "Go Basics"},
			wantSubject: "A new lesson is available",
			wantInBody:  "Lesson X is live",
		},
		{
			name:        "comment reply",
			kind:        notification.KindCommentReply,
			vars:        map[string]any{"Message": "Alice replied to you"},
			wantSubject: "Someone replied to your comment",
			wantInBody:  "Alice replied to you",
		},
		{
			name:        "certificate issued",
			kind:        notification.KindCertificateIssued,
			vars:        map[string]any{"Message": "Certificate ready"},
			wantSubject: "Your certificate is ready",
			wantInBody:  "Certificate ready",
		},
		{
			name:        "unknown kind falls back to generic",
			kind:        notification.Kind("SOMETHING_NEW"),
			vars:        map[string]any{"Message": "generic body"},
			wantSubject: "You have a new notification",
			wantInBody:  "generic body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := Render(tt.kind, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, email.Subject)
			assert.Contains(t, email.BodyHTML, tt.wantInBody)
		})
	}
}

func TestRender_EscapesHTML(t *testing.T) {
	email, err := Render(notification.KindLikeReceived, map[string]any{
		"Message": `<script>alert("x")</script>`,
	})
	require.NoError(t, err)
	assert.NotContains(t, email.BodyHTML, "<script>")
}
