package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"tripfarm/internal/form"
	"tripfarm/internal/textutil"
)

//go:embed templates/submission.html.tmpl
var templateFS embed.FS

var submissionTemplate = template.Must(template.ParseFS(templateFS, "templates/submission.html.tmpl"))

const readableTime = "02/01/2006, 15:04:05"

type summaryView struct {
	Name       string
	City       string
	Sex        string
	BirthYear  string
	FormType   string
	ReceivedAt string
	HasAudio   bool
}

// Composer renders submission emails.
type Composer struct {
	recipient string
	location  *time.Location
}

// NewComposer returns a Composer addressing recipient and rendering times in loc.
func NewComposer(recipient string, loc *time.Location) *Composer {
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{recipient: recipient, location: loc}
}

// Subject returns "Nova resposta TripFarm - <tipo> - <nome>".
func Subject(sub *form.Submission) string {
	return fmt.Sprintf("Nova resposta TripFarm - %s - %s",
		textutil.OrDefault(sub.FormType, "formulário"),
		textutil.OrDefault(sub.Name, "Usuário"),
	)
}

// Compose builds the message for sub carrying attachment.
func (c *Composer) Compose(sub *form.Submission, attachment *Attachment) (*Message, error) {
	view := summaryView{
		Name:       textutil.OrPlaceholder(sub.Name),
		City:       textutil.OrPlaceholder(sub.City),
		Sex:        textutil.OrPlaceholder(sub.Sex),
		BirthYear:  textutil.OrPlaceholder(sub.BirthYear),
		FormType:   textutil.OrPlaceholder(sub.FormType),
		ReceivedAt: sub.ReceivedAt.In(c.location).Format(readableTime),
		HasAudio:   sub.HasAudio(),
	}
	var body bytes.Buffer
	if err := submissionTemplate.Execute(&body, view); err != nil {
		return nil, fmt.Errorf("render mail body: %w", err)
	}
	return &Message{
		To:         c.recipient,
		Subject:    Subject(sub),
		HTMLBody:   body.String(),
		Attachment: attachment,
	}, nil
}
