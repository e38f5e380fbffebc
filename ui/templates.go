package ui

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: sans-serif; max-width: 960px; margin: 2em auto; }
    table { border-collapse: collapse; }
    td, th { border: 1px solid #ccc; padding: 4px 8px; }
    code, pre { background: #f4f4f4; }
  </style>
</head>
<body>
<nav><a href="/">sessions</a></nav>
{{template "content" .}}
</body>
</html>{{end}}`

const content = `{{define "content"}}
{{.Body}}
{{if .Programs}}
<h2>Programs</h2>
<table>
<tr><th>Name</th><th>Variables</th><th>Description</th></tr>
{{range .Programs}}<tr><td><a href="/programs/{{.Name}}">{{.Name}}</a></td><td>{{join .Variables ", "}}</td><td>{{.Description}}</td></tr>
{{end}}</table>
{{end}}
{{if .Sessions}}
<h2>Sessions</h2>
<table>
<tr><th>Program</th><th>Status</th><th>Iterations</th><th>Invariant</th></tr>
{{range .Sessions}}<tr><td>{{.Program}}</td><td><a href="/sessions/{{.SessionID}}">{{.Status}}</a></td><td>{{.Iterations}}</td><td><code>{{.Readable}}</code></td></tr>
{{end}}</table>
{{end}}
{{if .Invariants}}
<h2>Stored invariants</h2>
<table>
<tr><th>Created</th><th>Invariant</th><th>Iterations</th><th>Soundness</th></tr>
{{range .Invariants}}<tr><td>{{.CreatedAt.Format "2006-01-02 15:04:05"}}</td><td><code>{{.Normalized}}</code></td><td>{{.Iterations}}</td><td>{{.Soundness}}</td></tr>
{{end}}</table>
{{end}}
{{end}}`

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{"join": strings.Join}
	t := template.New("ui").Funcs(funcMap)
	for _, src := range []string{layout, content} {
		var err error
		if t, err = t.Parse(src); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// renderTemplate renders into a buffer first so a failed template never
// sends half a page
func (a *App) renderTemplate(w http.ResponseWriter, data page) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, "layout", data); err != nil {
		a.logger.Error("[UI] template error for %q: %v", data.Title, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		a.logger.Warn("[UI] error writing response: %v", err)
	}
}
