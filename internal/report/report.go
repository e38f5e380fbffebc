// Package report renders learning results as Markdown and HTML.
package report

import (
	"fmt"
	"strings"

	"invlearn/app"
	"invlearn/domain/equation"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders one session
func Markdown(r *app.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Invariant for %s\n\n", r.Program)

	b.WriteString("| Field | Value |\n|---|---|\n")
	row(&b, "Session", string(r.SessionID))
	row(&b, "Status", string(r.Status))
	row(&b, "Iterations", fmt.Sprint(r.Iterations))
	row(&b, "Runtime", fmt.Sprintf("%d ms", r.RuntimeMs))
	if r.Converged() {
		row(&b, "Accuracy", fmt.Sprintf("%.4f", r.Accuracy))
		row(&b, "Soundness", string(r.Soundness))
		row(&b, "Scale", fmt.Sprintf("%g (%s)", r.Scale.Value, r.Scale.Source))
	}
	b.WriteString("\n")

	if r.Readable != "" {
		fmt.Fprintf(&b, "## Invariant\n\n```\n%s\n```\n\n", r.Readable)
	}
	if r.Invariant != nil {
		b.WriteString("## Coefficients\n\n| Monomial | Raw | Normalized |\n|---|---|---|\n")
		vars := equation.DefaultVariables(r.Invariant.Vars())
		if len(r.Variables) == r.Invariant.Vars() {
			if named, err := equation.NewVariables(r.Variables...); err == nil {
				vars = named
			}
		}
		names := append([]string{"1"}, vars.MonomialNames(r.Invariant.Degree())...)
		raw := r.Invariant.Coefficients()
		var normalized []float64
		if r.Normalized != nil {
			normalized = r.Normalized.Coefficients()
		}
		for i, name := range names {
			norm := "-"
			if i < len(normalized) {
				norm = fmt.Sprintf("%g", normalized[i])
			}
			fmt.Fprintf(&b, "| `%s` | %.6g | %s |\n", name, raw[i], norm)
		}
		b.WriteString("\n")
	}

	if len(r.History) > 0 {
		b.WriteString("## Iterations\n\n| # | Positive | Negative | Verdict | Reason | Accuracy | Min margin | ms |\n|---|---|---|---|---|---|---|---|\n")
		for _, it := range r.History {
			reason := string(it.Verdict.Reason)
			if it.Verdict.TraceIndex >= 0 {
				reason = fmt.Sprintf("%s (trace %d)", reason, it.Verdict.TraceIndex)
			}
			if it.Skipped != "" {
				reason = it.Skipped
			}
			fmt.Fprintf(&b, "| %d | %d | %d | %s | %s | %.3f | %.3g | %d |\n",
				it.Number, it.Positives, it.Negatives, it.Verdict.Status, escape(reason),
				it.Accuracy, it.Margins.Min, it.DurationMs)
		}
		b.WriteString("\n")
	}

	if m := r.Manifest; m != nil {
		b.WriteString("## Manifest\n\n")
		fmt.Fprintf(&b, "- Variables: %s\n", strings.Join(m.Variables, ", "))
		fmt.Fprintf(&b, "- Degree: %d\n", m.Degree)
		fmt.Fprintf(&b, "- Inputs: [%d, %d]\n", m.Bounds.Min, m.Bounds.Max)
		fmt.Fprintf(&b, "- Seed: %d\n", m.Seed)
		fmt.Fprintf(&b, "- Fingerprint: `%s`\n", m.Fingerprint)
	}
	return b.String()
}

// Summary renders one table row per session
func Summary(results []*app.Result) string {
	var b strings.Builder
	b.WriteString("# Learning summary\n\n| Program | Status | Iterations | Invariant |\n|---|---|---|---|\n")
	for _, r := range results {
		if r == nil {
			continue
		}
		inv := "-"
		if r.Readable != "" {
			inv = "`" + r.Readable + "`"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", escape(string(r.Program)), r.Status, r.Iterations, inv)
	}
	return b.String()
}

// HTML converts Markdown to a complete page
func HTML(md, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: title,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}

// Fragment converts Markdown to an HTML body fragment
func Fragment(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func row(b *strings.Builder, k, v string) {
	fmt.Fprintf(b, "| %s | %s |\n", k, escape(v))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
