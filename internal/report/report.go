// Package report renders minutes as a self-contained HTML document.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/example/council-portal/internal/application"
)

// ContentType is the media type of rendered documents.
const ContentType = "text/html; charset=utf-8"

//go:embed templates/minutes.html
var templateFS embed.FS

var minutesTemplate = template.Must(
	template.New("minutes.html").
		Funcs(template.FuncMap{
			"date":     func(t time.Time) string { return t.Format("02/01/2006") },
			"datetime": func(t time.Time) string { return t.Format("02/01/2006 à 15h04") },
			"deref": func(s *string) string {
				if s == nil {
					return ""
				}
				return *s
			},
		}).
		ParseFS(templateFS, "templates/minutes.html"),
)

// Renderer renders minutes documents.
type Renderer struct{}

// NewRenderer returns a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderMinutes renders the minutes with their session metadata and agenda.
// The content is escaped and its line breaks are preserved.
func (r *Renderer) RenderMinutes(minutes application.Minutes) (application.MinutesExport, error) {
	var buf bytes.Buffer
	if err := minutesTemplate.Execute(&buf, minutes); err != nil {
		return application.MinutesExport{}, fmt.Errorf("render minutes %d: %w", minutes.ID, err)
	}
	return application.MinutesExport{
		Filename:    Filename(minutes),
		ContentType: ContentType,
		Body:        buf.Bytes(),
	}, nil
}

// Filename suggests the download name for minutes, keyed by session and date.
func Filename(minutes application.Minutes) string {
	date := minutes.Session.Date
	if date.IsZero() {
		date = minutes.WrittenAt
	}
	return fmt.Sprintf("proces-verbal-session-%d-%s.html", minutes.SessionID, date.Format("2006-01-02"))
}
