package ui

import (
	"html/template"
	"net/http"

	"invlearn/app"
	"invlearn/domain/core"
	"invlearn/internal/report"
	"invlearn/models"
	"invlearn/programs"

	"github.com/go-chi/chi/v5"
)

type page struct {
	Title      string
	Body       template.HTML
	Programs   []programs.Entry
	Sessions   []*app.Result
	Invariants []*models.Invariant
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	p := page{
		Title:    "Invariant learning",
		Body:     template.HTML(report.Fragment("# Invariant learning\n")),
		Sessions: a.learning.Results(),
	}
	for _, name := range programs.Names() {
		if e, err := programs.Lookup(name); err == nil {
			p.Programs = append(p.Programs, e)
		}
	}
	a.renderTemplate(w, p)
}

func (a *App) handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := a.learning.Result(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	a.renderTemplate(w, page{
		Title: result.Program.String(),
		Body:  template.HTML(report.Fragment(report.Markdown(result))),
	})
}

func (a *App) handleProgram(w http.ResponseWriter, r *http.Request) {
	name, err := core.ParseProgramName(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry, err := programs.Lookup(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	p := page{Title: name.String(), Programs: []programs.Entry{entry}}
	for _, res := range a.learning.Results() {
		if res.Program == name {
			p.Sessions = append(p.Sessions, res)
		}
	}
	if a.invariants != nil {
		invariants, err := a.invariants.ListByProgram(r.Context(), name, 50)
		if err != nil {
			a.logger.Error("[UI] failed to list invariants for %s: %v", name, err)
		}
		p.Invariants = invariants
	}
	a.renderTemplate(w, p)
}
