package checklist

import (
	"testing"
)

func TestParseBasicTasks(t *testing.T) {
	tasks := Parse("- [x] Done\n- [ ] Todo")

	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Content != "Done" || !tasks[0].Completed {
		t.Errorf("first task = %+v, want completed %q", tasks[0], "Done")
	}
	if tasks[1].Content != "Todo" || tasks[1].Completed {
		t.Errorf("second task = %+v, want pending %q", tasks[1], "Todo")
	}
	if tasks[0].Section != "" || tasks[1].Section != "" {
		t.Error("tasks before any heading should carry no section")
	}
}

func TestParseSectionAttribution(t *testing.T) {
	tasks := Parse("## Week 1\n- [x] A")

	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Section != "Week 1" {
		t.Errorf("section = %q, want %q", tasks[0].Section, "Week 1")
	}
}

func TestParseMostRecentHeadingWins(t *testing.T) {
	src := "# Project\n- [ ] before\n## Sprint 1\n- [x] one\n### Details\n- [x] two\n## Sprint 2\n- [ ] three"
	tasks := Parse(src)

	want := map[string]string{
		"before": "Project",
		"one":    "Sprint 1",
		"two":    "Details",
		"three":  "Sprint 2",
	}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for _, task := range tasks {
		if task.Section != want[task.Content] {
			t.Errorf("task %q: section = %q, want %q", task.Content, task.Section, want[task.Content])
		}
	}
}

func TestParseBulletVariantsAndCase(t *testing.T) {
	tasks := Parse("- [x] dash\n* [X] star\n+ [ ] plus")

	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	if !tasks[0].Completed || !tasks[1].Completed {
		t.Error("lowercase and uppercase x should both mean completed")
	}
	if tasks[2].Completed {
		t.Error("empty checkbox should be pending")
	}
}

func TestParseIgnoresMalformedLines(t *testing.T) {
	src := "- plain bullet without checkbox\n" +
		"-[x] missing space after bullet\n" +
		"- [y] invalid marker\n" +
		"just prose\n" +
		"####### seven hashes is not a heading\n" +
		"- [x] valid"

	tasks := Parse(src)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1: %+v", len(tasks), tasks)
	}
	if tasks[0].Content != "valid" {
		t.Errorf("got %q, want %q", tasks[0].Content, "valid")
	}
}

func TestParseRecordsLineNumbers(t *testing.T) {
	tasks := Parse("intro\n\n- [x] first\n- [ ] second")

	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Line != 3 || tasks[1].Line != 4 {
		t.Errorf("line numbers = %d, %d; want 3, 4", tasks[0].Line, tasks[1].Line)
	}
}

func TestPartitionInProgressHeuristic(t *testing.T) {
	src := "- [x] shipped\n" +
		"- [ ] ⏳ migrating database\n" +
		"- [ ] API rework in progress\n" +
		"- [ ] Ongoing cleanup\n" +
		"- [ ] started the refactor\n" +
		"- [ ] untouched idea"

	completed, inProgress, pending := Partition(Parse(src))

	if len(completed) != 1 || completed[0].Content != "shipped" {
		t.Errorf("completed = %+v, want [shipped]", completed)
	}
	if len(inProgress) != 4 {
		t.Errorf("got %d in-progress tasks, want 4: %+v", len(inProgress), inProgress)
	}
	if len(pending) != 1 || pending[0].Content != "untouched idea" {
		t.Errorf("pending = %+v, want [untouched idea]", pending)
	}
}
