package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/example/council-portal/internal/application"
)

const noticeDateLayout = "02/01/2006 à 15h04"

var convocationTemplate = template.Must(template.New("convocation").Parse(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; color: #222;">
  <p>Bonjour {{.MemberName}},</p>
  <p>Vous êtes convoqué(e) à la session du conseil{{if .Title}} « {{.Title}} »{{end}}.</p>
  <table cellpadding="4">
    <tr><td><strong>Date</strong></td><td>{{.Date}}</td></tr>
    <tr><td><strong>Lieu</strong></td><td>{{.Location}}</td></tr>
    <tr><td><strong>Présidence</strong></td><td>{{.President}}</td></tr>
  </table>
  {{- if .Agenda}}
  <p><strong>Ordre du jour</strong></p>
  <ol>
    {{- range .Agenda}}
    <li>{{.Title}}{{if .Description}} : {{.Description}}{{end}}</li>
    {{- end}}
  </ol>
  {{- end}}
  {{- if .Link}}
  <p><a href="{{.Link}}">Consulter et confirmer votre présence</a></p>
  {{- end}}
  <p>Cordialement,<br>Le secrétariat du conseil</p>
</body>
</html>
`))

type convocationView struct {
	MemberName string
	Title      string
	Date       string
	Location   string
	President  string
	Agenda     []application.AgendaItem
	Link       string
}

// ConvocationNotifier renders convocation notices and hands them to a Sender.
type ConvocationNotifier struct {
	sender    *Sender
	publicURL string
	logger    *slog.Logger
}

// NewConvocationNotifier returns a notifier linking back to publicURL.
func NewConvocationNotifier(sender *Sender, publicURL string, logger *slog.Logger) *ConvocationNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConvocationNotifier{
		sender:    sender,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With("component", "convocation_notifier"),
	}
}

// NotifyConvocation emails the notice to the convened member.
func (n *ConvocationNotifier) NotifyConvocation(ctx context.Context, notice application.ConvocationNotice) bool {
	subject, body, err := n.Render(notice)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to render convocation", "convocation_id", notice.ConvocationID, "error", err)
		return false
	}
	return n.sender.Send(ctx, notice.Member.Email, subject, body)
}

// Render returns the subject and HTML body of a convocation notice.
func (n *ConvocationNotifier) Render(notice application.ConvocationNotice) (string, string, error) {
	session := notice.Session
	view := convocationView{
		MemberName: notice.Member.Name,
		Date:       session.Date.Format(noticeDateLayout),
		Location:   session.Location,
		President:  session.President,
		Agenda:     session.Agenda,
	}
	if session.Title != nil {
		view.Title = *session.Title
	}
	if n.publicURL != "" {
		view.Link = fmt.Sprintf("%s/convocations/%d", n.publicURL, notice.ConvocationID)
	}

	var buf bytes.Buffer
	if err := convocationTemplate.Execute(&buf, view); err != nil {
		return "", "", err
	}
	subject := "Convocation à la session du " + session.Date.Format("02/01/2006")
	return subject, buf.String(), nil
}
