package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

const (
	bookingConfirmedText = `Hi {{.name}},

Your booking {{.booking_ref}} for {{.item_name}} is confirmed.
{{if .start}}Travel date: {{.start}}
{{end}}Travellers: {{.party_size}}
Total paid: {{.total}}

Your itinerary and boarding pass are available in your account.

The World Tour team
`
	bookingConfirmedHTML = `<h2>Booking confirmed</h2>
<p>Hi {{.name}},</p>
<p>Your booking <strong>{{.booking_ref}}</strong> for <strong>{{.item_name}}</strong> is confirmed.</p>
<ul>
{{if .start}}<li>Travel date: {{.start}}</li>{{end}}
<li>Travellers: {{.party_size}}</li>
<li>Total paid: {{.total}}</li>
</ul>
<p>Your itinerary and boarding pass are available in your account.</p>
<p>The World Tour team</p>
`
	bookingCancelledText = `Hi {{.name}},

Your booking {{.booking_ref}} for {{.item_name}} has been cancelled.
{{if .reason}}Reason: {{.reason}}
{{end}}
The World Tour team
`
	bookingCancelledHTML = `<h2>Booking cancelled</h2>
<p>Hi {{.name}},</p>
<p>Your booking <strong>{{.booking_ref}}</strong> for <strong>{{.item_name}}</strong> has been cancelled.</p>
{{if .reason}}<p>Reason: {{.reason}}</p>{{end}}
<p>The World Tour team</p>
`
)

type bodyTemplates struct {
	text *template.Template
	html *htmltemplate.Template
}

var templates = map[NotificationType]bodyTemplates{
	NotificationTypeBookingConfirmed: {
		text: template.Must(template.New("confirmed").Parse(bookingConfirmedText)),
		html: htmltemplate.Must(htmltemplate.New("confirmed").Parse(bookingConfirmedHTML)),
	},
	NotificationTypeBookingCancelled: {
		text: template.Must(template.New("cancelled").Parse(bookingCancelledText)),
		html: htmltemplate.Must(htmltemplate.New("cancelled").Parse(bookingCancelledHTML)),
	},
}

func subjectFor(notType NotificationType, data map[string]string) string {
	switch notType {
	case NotificationTypeBookingConfirmed:
		return fmt.Sprintf("Booking confirmed: %s", data["item_name"])
	case NotificationTypeBookingCancelled:
		return fmt.Sprintf("Booking cancelled: %s", data["item_name"])
	default:
		return "A message from World Tour"
	}
}

// renderBodies returns the plain text and HTML bodies of n
func renderBodies(n *EmailNotification) (string, string, error) {
	tmpl, ok := templates[n.Type]
	if !ok {
		return "", "", fmt.Errorf("no template for notification type %s", n.Type)
	}

	data := make(map[string]string, len(n.TemplateData)+1)
	for k, v := range n.TemplateData {
		data[k] = v
	}
	data["name"] = n.RecipientName

	var text, html bytes.Buffer
	if err := tmpl.text.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("failed to render text body: %w", err)
	}
	if err := tmpl.html.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("failed to render html body: %w", err)
	}
	return text.String(), html.String(), nil
}
