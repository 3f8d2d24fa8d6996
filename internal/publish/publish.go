// Package publish renders a parsed progress report into a publish-ready
// document, either as a full article or a condensed summary.
package publish

import (
	"fmt"
	"strings"

	"github.com/codefionn/daybook/internal/meta"
	"github.com/codefionn/daybook/internal/report"
)

// Variant selects the rendering style.
type Variant int

const (
	// Full renders every populated section as its own heading.
	Full Variant = iota
	// Summary renders one condensed paragraph.
	Summary
)

var baseTags = []string{"progress-report", "development"}

// Document is the rendered report artifact.
type Document struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Excerpt     string   `json:"excerpt"`
	Tags        []string `json:"tags"`
	ReadTime    int      `json:"readTime"`
	Fingerprint string   `json:"fingerprint"`
}

// Render turns a parsed report into a document. Sections whose underlying
// data is empty are omitted entirely; there are no empty headings.
func Render(r *report.ProgressReport, variant Variant) *Document {
	var content string
	if variant == Summary {
		content = renderSummary(r)
	} else {
		content = renderFull(r)
	}

	title := fmt.Sprintf("%s Progress Report", r.ProjectName)
	if r.Date != "" {
		title = fmt.Sprintf("%s - %s", title, r.Date)
	}

	return &Document{
		Title:       title,
		Content:     content,
		Excerpt:     excerpt(r),
		Tags:        tags(r, variant),
		ReadTime:    meta.ReadTime(content),
		Fingerprint: meta.Fingerprint(content),
	}
}

func renderFull(r *report.ProgressReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Here's what happened on %s", r.ProjectName)
	if r.Date != "" {
		fmt.Fprintf(&b, " as of %s", r.Date)
	}
	b.WriteString(".\n")

	if len(r.CompletedTasks) > 0 {
		b.WriteString("\n## Completed\n\n")
		for _, task := range r.CompletedTasks {
			fmt.Fprintf(&b, "- %s\n", task)
		}
	}

	if len(r.Issues) > 0 {
		b.WriteString("\n## Issues & Learnings\n")
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "\n### %s\n\n", issue.Title)
			writeField(&b, "Symptom", issue.Symptom)
			writeField(&b, "Root Cause", issue.RootCause)
			writeField(&b, "Fix", issue.Fix)
			if issue.Learning != "" {
				fmt.Fprintf(&b, "\n> **Key takeaway:** %s\n", issue.Learning)
			}
		}
	}

	if r.ImpactSummary != "" {
		fmt.Fprintf(&b, "\n## Impact\n\n%s\n", r.ImpactSummary)
	}

	if len(r.NextSteps) > 0 {
		b.WriteString("\n## Next Steps\n\n")
		for _, step := range r.NextSteps {
			fmt.Fprintf(&b, "- %s\n", step)
		}
	}

	b.WriteString("\nMore to come in the next report.\n")
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "**%s:** %s\n\n", label, value)
	}
}

// renderSummary condenses the report to at most three lines of prose.
func renderSummary(r *report.ProgressReport) string {
	var lines []string

	if n := len(r.CompletedTasks); n > 0 {
		lines = append(lines, fmt.Sprintf("%s wrapped up %d %s on %s.",
			r.ProjectName, n, plural(n, "task", "tasks"), dateOr(r.Date, "the latest update")))
	} else {
		lines = append(lines, fmt.Sprintf("Status update for %s.", r.ProjectName))
	}

	if len(r.Issues) > 0 {
		var notes []string
		for _, issue := range r.Issues {
			switch {
			case issue.Learning != "":
				notes = append(notes, issue.Learning)
			case issue.Fix != "":
				notes = append(notes, issue.Fix)
			default:
				notes = append(notes, issue.Title)
			}
		}
		lines = append(lines, "Along the way: "+strings.Join(notes, "; ")+".")
	}

	if r.ImpactSummary != "" {
		lines = append(lines, r.ImpactSummary)
	}

	return strings.Join(lines, " ") + "\n"
}

func excerpt(r *report.ProgressReport) string {
	parts := []string{
		fmt.Sprintf("%s completed", pluralCount(len(r.CompletedTasks), "task", "tasks")),
	}
	if n := len(r.Issues); n > 0 {
		parts = append(parts, fmt.Sprintf("%s documented", pluralCount(n, "issue", "issues")))
	}
	return fmt.Sprintf("%s: %s.", r.ProjectName, strings.Join(parts, ", "))
}

// tags is the fixed base pair plus the slugified project name; full reports
// additionally get lessons-learned when at least one issue was parsed.
func tags(r *report.ProgressReport, variant Variant) []string {
	out := append([]string(nil), baseTags...)
	if slug := meta.Slugify(r.ProjectName); slug != "" {
		out = append(out, slug)
	}
	if variant == Full && len(r.Issues) > 0 {
		out = append(out, "lessons-learned")
	}
	return out
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}

func pluralCount(n int, singular, pluralForm string) string {
	return fmt.Sprintf("%d %s", n, plural(n, singular, pluralForm))
}

func dateOr(date, fallback string) string {
	if date != "" {
		return date
	}
	return fallback
}
