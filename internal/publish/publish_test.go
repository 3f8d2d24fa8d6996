package publish

import (
	"strings"
	"testing"

	"github.com/codefionn/daybook/internal/report"
)

func sampleReport() *report.ProgressReport {
	return &report.ProgressReport{
		ProjectName:    "orderflow",
		Date:           "2026-08-28",
		CompletedTasks: []string{"Wired retry queue", "Removed CSV exporter"},
		Issues: []report.Issue{{
			Title:     "Dispatcher deadlock",
			Symptom:   "Workers stopped draining",
			RootCause: "Unbuffered result channel",
			Fix:       "Buffered the channel",
			Learning:  "Trace channel ownership first",
		}},
		ImpactSummary: "Throughput doubled.",
		NextSteps:     []string{"Load-test", "Announce deprecation"},
	}
}

func TestRenderFull(t *testing.T) {
	doc := Render(sampleReport(), Full)

	if doc.Title != "orderflow Progress Report - 2026-08-28" {
		t.Errorf("title = %q", doc.Title)
	}

	for _, want := range []string{
		"## Completed",
		"- Wired retry queue",
		"### Dispatcher deadlock",
		"**Symptom:** Workers stopped draining",
		"**Root Cause:** Unbuffered result channel",
		"> **Key takeaway:** Trace channel ownership first",
		"## Impact",
		"Throughput doubled.",
		"## Next Steps",
		"- Announce deprecation",
	} {
		if !strings.Contains(doc.Content, want) {
			t.Errorf("content missing %q", want)
		}
	}
}

func TestRenderFullOmitsEmptySections(t *testing.T) {
	doc := Render(&report.ProgressReport{ProjectName: "bare"}, Full)

	for _, heading := range []string{"## Completed", "## Issues", "## Impact", "## Next Steps"} {
		if strings.Contains(doc.Content, heading) {
			t.Errorf("empty section %q was rendered", heading)
		}
	}
	if doc.Title != "bare Progress Report" {
		t.Errorf("title without date = %q", doc.Title)
	}
}

func TestRenderFullSkipsMissingIssueFields(t *testing.T) {
	r := &report.ProgressReport{
		ProjectName: "p",
		Issues:      []report.Issue{{Title: "Flaky test", Fix: "Injected the clock"}},
	}
	doc := Render(r, Full)

	if strings.Contains(doc.Content, "**Symptom:**") || strings.Contains(doc.Content, "**Root Cause:**") {
		t.Error("absent issue fields were rendered")
	}
	if !strings.Contains(doc.Content, "**Fix:** Injected the clock") {
		t.Error("present field was dropped")
	}
	if strings.Contains(doc.Content, "Key takeaway") {
		t.Error("takeaway rendered without a learning")
	}
}

func TestRenderSummary(t *testing.T) {
	doc := Render(sampleReport(), Summary)

	if !strings.Contains(doc.Content, "orderflow wrapped up 2 tasks on 2026-08-28.") {
		t.Errorf("summary lead = %q", doc.Content)
	}
	if !strings.Contains(doc.Content, "Along the way: Trace channel ownership first.") {
		t.Errorf("summary notes = %q", doc.Content)
	}
	if !strings.Contains(doc.Content, "Throughput doubled.") {
		t.Errorf("summary impact missing: %q", doc.Content)
	}
	if strings.Contains(doc.Content, "##") {
		t.Error("summary must not contain headings")
	}
}

func TestRenderSummaryWithoutTasks(t *testing.T) {
	doc := Render(&report.ProgressReport{ProjectName: "idle"}, Summary)
	if !strings.Contains(doc.Content, "Status update for idle.") {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestTags(t *testing.T) {
	t.Run("full with issues gets lessons-learned", func(t *testing.T) {
		doc := Render(sampleReport(), Full)
		want := []string{"progress-report", "development", "orderflow", "lessons-learned"}
		assertTags(t, doc.Tags, want)
	})

	t.Run("summary never gets lessons-learned", func(t *testing.T) {
		doc := Render(sampleReport(), Summary)
		assertTags(t, doc.Tags, []string{"progress-report", "development", "orderflow"})
	})

	t.Run("full without issues", func(t *testing.T) {
		r := sampleReport()
		r.Issues = nil
		doc := Render(r, Full)
		assertTags(t, doc.Tags, []string{"progress-report", "development", "orderflow"})
	})
}

func assertTags(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExcerptAndMetadata(t *testing.T) {
	doc := Render(sampleReport(), Full)

	if doc.Excerpt != "orderflow: 2 tasks completed, 1 issue documented." {
		t.Errorf("excerpt = %q", doc.Excerpt)
	}
	if doc.ReadTime < 1 {
		t.Errorf("read time = %d", doc.ReadTime)
	}
	if len(doc.Fingerprint) != 16 {
		t.Errorf("fingerprint = %q", doc.Fingerprint)
	}

	r := sampleReport()
	r.Issues = nil
	if got := Render(r, Full).Excerpt; got != "orderflow: 2 tasks completed." {
		t.Errorf("excerpt without issues = %q", got)
	}
}
