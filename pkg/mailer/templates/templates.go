package templates

import (
	"bytes"
	"embed"
	htmpl "html/template"
)

//go:embed *.tmpl
var FS embed.FS

var tmpls = htmpl.Must(htmpl.ParseFS(FS, "*.tmpl"))

// Render renders the named template with data and returns subject and HTML
// body.
func Render(name string, data map[string]any) (string, string, error) {
	var buf bytes.Buffer
	if err := tmpls.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", "", err
	}
	return subjectFor(name), buf.String(), nil
}

func subjectFor(name string) string {
	switch name {
	case "verify_email":
		return "Email confirmation"
	case "reset_password":
		return "Password reset"
	default:
		return "Notification"
	}
}

// Known reports whether a worker can render the named template.
func Known(name string) bool {
	switch name {
	case "verify_email", "reset_password":
		return true
	}
	return false
}
