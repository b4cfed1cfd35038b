package guests

import (
	"context"
	"html/template"
	"strings"
	"time"
)

// PDFRenderer converts an HTML document into a PDF. *report.Client
// satisfies it.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

var pdfTemplate = template.Must(template.New("export").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006")
	},
}).Parse(`<!DOCTYPE html>
<html lang="it">
<head>
<meta charset="utf-8">
<title>Registro ospiti</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 10px; margin: 24px; }
h1 { font-size: 16px; }
p.meta { color: #555; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 3px 5px; text-align: left; }
th { background: #eee; }
</style>
</head>
<body>
<h1>Registro ospiti</h1>
<p class="meta">Generato il {{.GeneratedAt}} &middot; {{len .Guests}} ospiti</p>
<table>
<thead>
<tr>
<th>Cognome</th><th>Nome</th><th>Sesso</th><th>Data di nascita</th><th>Luogo di nascita</th>
<th>Codice fiscale</th><th>Permesso</th><th>Scadenza permesso</th><th>Ingresso</th><th>Stanza</th><th>Piano</th>
</tr>
</thead>
<tbody>
{{range .Guests}}
<tr>
<td>{{.LastName}}</td>
<td>{{.FirstName}}</td>
<td>{{.Sex}}</td>
<td>{{formatDate .BirthDate}}</td>
<td>{{.BirthPlace}}</td>
<td>{{.FiscalCode}}</td>
<td>{{.PermitNumber}}</td>
<td>{{formatDate .PermitExpiry}}</td>
<td>{{formatDate .EntryDate}}</td>
<td>{{.RoomNumber}}</td>
<td>{{.Floor}}</td>
</tr>
{{end}}
</tbody>
</table>
</body>
</html>`))

type pdfData struct {
	GeneratedAt string
	Guests      []Guest
}

// RenderGuestsPDF renders the filtered guest list to a PDF document.
func RenderGuestsPDF(ctx context.Context, renderer PDFRenderer, guests []Guest) ([]byte, error) {
	var sb strings.Builder
	data := pdfData{
		GeneratedAt: time.Now().Format("02/01/2006 15:04"),
		Guests:      guests,
	}
	if err := pdfTemplate.Execute(&sb, data); err != nil {
		return nil, err
	}
	return renderer.RenderHTML(ctx, sb.String())
}
