// Package report parses templated progress-report markdown into a structured
// record. Parsing never fails: every input produces some result, with fields
// absent from the source left empty rather than fabricated.
package report

import (
	"regexp"
	"strings"
)

// FallbackProjectName is used when neither the title template nor any
// top-level heading yields a project name.
const FallbackProjectName = "Untitled Project"

// Issue is one "### Issue:" block. Any subset of the four detail fields may
// be present.
type Issue struct {
	Title     string
	Symptom   string
	RootCause string
	Fix       string
	Learning  string
}

// ProgressReport is the parsed form of one report document.
type ProgressReport struct {
	ProjectName    string
	Date           string
	CompletedTasks []string
	Issues         []Issue
	ImpactSummary  string
	NextSteps      []string
	RawContent     string
}

var (
	titleRegex    = regexp.MustCompile(`(?m)^#\s+(.+?)\s*-\s*(\d{4}-\d{2}-\d{2})\s+Progress Report\s*$`)
	isoDateRegex  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	headingRegex  = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	checkboxRegex = regexp.MustCompile(`^[-*+]\s+\[[ xX]\]\s+(.+)$`)
	pendingRegex  = regexp.MustCompile(`^[-*+]\s+\[ \]\s+(.+)$`)
	bulletRegex   = regexp.MustCompile(`^[-*+]\s+(.+)$`)
	issueRegex    = regexp.MustCompile(`(?m)^###\s+Issue:\s*(.+)$`)
	fieldRegex    = regexp.MustCompile(`^[-*+]\s+\*{0,2}(Symptom|Root Cause|Fix|Learning)\*{0,2}\s*:\s*(.+)$`)
)

// sectionMatcher extracts one field from the body of a named "## " section.
// Matchers run independently so a drifting template breaks one field, not
// the whole parse.
type sectionMatcher struct {
	heading string
	apply   func(body string, r *ProgressReport)
}

var sectionMatchers = []sectionMatcher{
	{"Completed Today", func(body string, r *ProgressReport) {
		r.CompletedTasks = collectItems(body, checkboxRegex, bulletRegex)
	}},
	{"Issues & Learnings", func(body string, r *ProgressReport) {
		r.Issues = parseIssues(body)
	}},
	{"Impact Summary", func(body string, r *ProgressReport) {
		r.ImpactSummary = strings.TrimSpace(body)
	}},
	{"Next Steps", func(body string, r *ProgressReport) {
		// Prefer unfinished checkbox items; degrade to plain bullets.
		r.NextSteps = collectItems(body, pendingRegex, bulletRegex)
	}},
}

// Parse builds a ProgressReport from markdown text.
func Parse(src string) *ProgressReport {
	r := &ProgressReport{RawContent: src}
	r.ProjectName, r.Date = parseTitle(src)

	sections := splitSections(src)
	for _, m := range sectionMatchers {
		if body, ok := sections[m.heading]; ok {
			m.apply(body, r)
		}
	}
	return r
}

// parseTitle reads "{project} - {date} Progress Report". When the template
// does not match it falls back to any ISO date in the text and the first
// top-level heading, then to the sentinel name.
func parseTitle(src string) (name, date string) {
	if m := titleRegex.FindStringSubmatch(src); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}

	date = isoDateRegex.FindString(src)
	if m := headingRegex.FindStringSubmatch(src); m != nil {
		name = strings.TrimSpace(m[1])
	}
	if name == "" {
		name = FallbackProjectName
	}
	return name, date
}

// splitSections maps each "## " heading to the text below it, up to the next
// section heading of the same level.
func splitSections(src string) map[string]string {
	sections := make(map[string]string)
	var current string
	var body []string

	flush := func() {
		if current != "" {
			sections[current] = strings.Join(body, "\n")
		}
		body = nil
	}

	for _, line := range strings.Split(src, "\n") {
		if heading, ok := strings.CutPrefix(line, "## "); ok {
			flush()
			current = strings.TrimSpace(heading)
			continue
		}
		body = append(body, line)
	}
	flush()
	return sections
}

// collectItems gathers list items matching preferred; when none match it
// retries with the fallback pattern.
func collectItems(body string, preferred, fallback *regexp.Regexp) []string {
	items := matchLines(body, preferred)
	if len(items) == 0 {
		items = matchLines(body, fallback)
	}
	return items
}

func matchLines(body string, re *regexp.Regexp) []string {
	var items []string
	for _, line := range strings.Split(body, "\n") {
		if m := re.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	return items
}

// parseIssues splits the section into "### Issue:" blocks and extracts the
// label-prefixed detail bullets from each one independently.
func parseIssues(body string) []Issue {
	locs := issueRegex.FindAllStringSubmatchIndex(body, -1)
	issues := make([]Issue, 0, len(locs))

	for i, loc := range locs {
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}

		issue := Issue{Title: strings.TrimSpace(body[loc[2]:loc[3]])}
		for _, line := range strings.Split(body[loc[1]:end], "\n") {
			m := fieldRegex.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				continue
			}
			value := strings.TrimSpace(m[2])
			switch m[1] {
			case "Symptom":
				issue.Symptom = value
			case "Root Cause":
				issue.RootCause = value
			case "Fix":
				issue.Fix = value
			case "Learning":
				issue.Learning = value
			}
		}
		issues = append(issues, issue)
	}
	return issues
}
