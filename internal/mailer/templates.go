package mailer

import (
	"strings"
	"text/template"
)

var (
	verificationBody = template.Must(template.New("verification").Parse(
		`Hi {{.Name}},

Use the link below to verify your email:
{{.Link}}
`))

	resetBody = template.Must(template.New("reset").Parse(
		`Hello,

Use the link below to reset your password:
{{.Link}}
`))
)

type bodyData struct {
	Name string
	Link string
}

func renderBody(tmpl *template.Template, data bodyData) string {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		// Templates are static and parsed at init; execution over a plain
		// struct cannot fail.
		return data.Link
	}
	return sb.String()
}
