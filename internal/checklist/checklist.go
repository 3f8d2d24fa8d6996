// Package checklist parses line-oriented markdown task lists. Parsing is
// pure and total: malformed lines are simply not matched, and the input is
// never mutated.
package checklist

import (
	"strings"
)

// Task is one checkbox line extracted from a checklist.
type Task struct {
	Content   string
	Completed bool
	// Section is the most recent heading above the task, empty when the
	// task appears before any heading.
	Section string
	// Line is the 1-based source line the task was found on.
	Line int
}

// inProgressMarkers reclassifies pending tasks as in progress. This is a
// keyword heuristic, not a guarantee; tasks can be misclassified in either
// direction when their wording happens to contain or omit a marker.
var inProgressMarkers = []string{
	"⏳",
	"in progress",
	"ongoing",
	"started",
}

// Parse extracts every task from markdown text.
func Parse(src string) []Task {
	var tasks []Task
	section := ""

	for i, line := range strings.Split(src, "\n") {
		if heading, ok := parseHeading(line); ok {
			section = heading
			continue
		}
		if content, completed, ok := parseTaskLine(line); ok {
			tasks = append(tasks, Task{
				Content:   content,
				Completed: completed,
				Section:   section,
				Line:      i + 1,
			})
		}
	}
	return tasks
}

// Partition splits tasks into completed, in-progress and pending groups.
// In-progress is carved out of the pending set by the keyword heuristic.
func Partition(tasks []Task) (completed, inProgress, pending []Task) {
	for _, t := range tasks {
		switch {
		case t.Completed:
			completed = append(completed, t)
		case isInProgress(t.Content):
			inProgress = append(inProgress, t)
		default:
			pending = append(pending, t)
		}
	}
	return completed, inProgress, pending
}

func parseHeading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level < 1 || level > 6 || level == len(trimmed) || trimmed[level] != ' ' {
		return "", false
	}
	return strings.TrimSpace(trimmed[level:]), true
}

func parseTaskLine(line string) (content string, completed, ok bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 1 {
		return "", false, false
	}

	switch trimmed[0] {
	case '-', '*', '+':
	default:
		return "", false, false
	}
	if len(trimmed) < 2 || (trimmed[1] != ' ' && trimmed[1] != '\t') {
		return "", false, false
	}

	rest := strings.TrimLeft(trimmed[1:], " \t")
	if len(rest) < 3 || rest[0] != '[' || rest[2] != ']' {
		return "", false, false
	}

	switch rest[1] {
	case ' ':
		completed = false
	case 'x', 'X':
		completed = true
	default:
		return "", false, false
	}

	content = strings.TrimSpace(rest[3:])
	if content == "" {
		return "", false, false
	}
	return content, completed, true
}

func isInProgress(content string) bool {
	lowered := strings.ToLower(content)
	for _, marker := range inProgressMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
