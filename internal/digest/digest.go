// Package digest builds the daily multi-source digest document. Sources are
// fetched concurrently with per-source failure isolation: one broken source
// contributes an error line to the digest instead of aborting the batch.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/codefionn/daybook/internal/checklist"
	"github.com/codefionn/daybook/internal/logger"
	"github.com/codefionn/daybook/internal/meta"
	"github.com/codefionn/daybook/internal/repohost"
	"github.com/codefionn/daybook/internal/vault"
)

// DefaultChecklistPath is fetched when a source does not name its own file.
const DefaultChecklistPath = "TODO.md"

var baseTags = []string{"daily-digest", "development"}

// Source describes one tracked repository.
type Source struct {
	Name           string `json:"name"`
	Repository     string `json:"repository"`
	EncryptedToken string `json:"-"`
	Path           string `json:"path,omitempty"`
	Branch         string `json:"branch,omitempty"`
}

// ProjectUpdate is the settled per-source outcome. Either the task slices
// are populated or Err carries a human-readable failure; a source never
// errors silently while also reporting tasks.
type ProjectUpdate struct {
	Name            string           `json:"name"`
	Repository      string           `json:"repository"`
	WebURL          string           `json:"webUrl,omitempty"`
	CompletedTasks  []checklist.Task `json:"completedTasks,omitempty"`
	InProgressTasks []checklist.Task `json:"inProgressTasks,omitempty"`
	Err             string           `json:"error,omitempty"`
}

// Document is the final digest artifact. It is pure derived data owned by
// the caller that requested generation.
type Document struct {
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Excerpt     string          `json:"excerpt"`
	Tags        []string        `json:"tags"`
	ReadTime    int             `json:"readTime"`
	Fingerprint string          `json:"fingerprint"`
	Projects    []ProjectUpdate `json:"projects"`
}

// ProgressFunc observes fan-out progress; see the event constants. It may be
// called from multiple goroutines.
type ProgressFunc func(event, source string)

// Progress event names delivered to ProgressFunc.
const (
	EventSourceStarted = "source_started"
	EventSourceDone    = "source_done"
	EventSourceFailed  = "source_failed"
	EventDigestDone    = "digest_done"
)

// Generator aggregates sources into digest documents.
type Generator struct {
	vault  *vault.Vault
	client *repohost.Client
	log    *logger.Logger
	now    func() time.Time
}

// NewGenerator creates a digest generator.
func NewGenerator(v *vault.Vault, client *repohost.Client) *Generator {
	return &Generator{
		vault:  v,
		client: client,
		log:    logger.Global().WithPrefix("digest"),
		now:    time.Now,
	}
}

// Generate fetches every selected source concurrently and renders one
// combined digest. Sources appear in the output in the caller-supplied
// order regardless of fetch completion order. selected filters sources by
// name; an empty selection means all.
func (g *Generator) Generate(ctx context.Context, sources []Source, selected []string, onProgress ProgressFunc) (*Document, error) {
	picked := filterSources(sources, selected)
	g.log.Info("generating digest for %d of %d sources", len(picked), len(sources))

	updates := make([]*ProjectUpdate, len(picked))
	var wg sync.WaitGroup
	for i, src := range picked {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			notify(onProgress, EventSourceStarted, src.Name)
			update := g.collect(ctx, src)
			if update.Err != "" {
				g.log.Warn("source %s failed: %s", src.Name, update.Err)
				notify(onProgress, EventSourceFailed, src.Name)
			} else {
				notify(onProgress, EventSourceDone, src.Name)
			}
			updates[i] = update
		}(i, src)
	}
	wg.Wait()

	// Sources with nothing to report are dropped entirely.
	var projects []ProjectUpdate
	for _, u := range updates {
		if len(u.CompletedTasks) == 0 && u.Err == "" {
			continue
		}
		projects = append(projects, *u)
	}

	date := g.now().Format("2006-01-02")
	content := renderDigest(date, projects)

	doc := &Document{
		Title:       fmt.Sprintf("Development Digest - %s", date),
		Content:     content,
		Excerpt:     digestExcerpt(projects),
		Tags:        digestTags(projects),
		ReadTime:    meta.ReadTime(content),
		Fingerprint: meta.Fingerprint(content),
		Projects:    projects,
	}
	notify(onProgress, EventDigestDone, "")
	return doc, nil
}

// collect resolves one source end to end: credential decryption, fetch,
// parse. Every failure mode lands in the Err field; nothing escapes as an
// error value.
func (g *Generator) collect(ctx context.Context, src Source) *ProjectUpdate {
	update := &ProjectUpdate{Name: src.Name}

	if strings.TrimSpace(src.Repository) == "" {
		update.Err = "no repository configured for this source"
		return update
	}

	ref, ok := repohost.ParseRef(src.Repository)
	if !ok {
		update.Err = fmt.Sprintf("could not parse repository reference %q", src.Repository)
		return update
	}
	update.Repository = ref.String()
	update.WebURL = ref.WebURL()

	if src.EncryptedToken != "" {
		token, err := g.vault.Decrypt(src.EncryptedToken)
		if err != nil {
			update.Err = "stored access token could not be decrypted"
			return update
		}
		ref.Token = token
	}

	path := src.Path
	if path == "" {
		path = DefaultChecklistPath
	}

	content, err := g.client.FetchFile(ctx, ref, path, src.Branch)
	if err != nil {
		update.Err = describeFetchError(err, path)
		return update
	}

	completed, inProgress, _ := checklist.Partition(checklist.Parse(content))
	update.CompletedTasks = completed
	update.InProgressTasks = inProgress
	return update
}

func describeFetchError(err error, path string) string {
	var rateErr *repohost.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		return rateErr.Error()
	case errors.Is(err, repohost.ErrNotFound):
		return fmt.Sprintf("checklist %s not found", path)
	case errors.Is(err, repohost.ErrAccessForbidden):
		return "access to the repository was denied"
	default:
		return fmt.Sprintf("fetch failed: %v", err)
	}
}

func filterSources(sources []Source, selected []string) []Source {
	if len(selected) == 0 {
		return sources
	}
	wanted := make(map[string]bool, len(selected))
	for _, name := range selected {
		wanted[name] = true
	}
	var picked []Source
	for _, src := range sources {
		if wanted[src.Name] {
			picked = append(picked, src)
		}
	}
	return picked
}

func notify(fn ProgressFunc, event, source string) {
	if fn != nil {
		fn(event, source)
	}
}

func renderDigest(date string, projects []ProjectUpdate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Development Digest - %s\n", date)

	if len(projects) == 0 {
		b.WriteString("\nThere were no completed tasks today. Back at it tomorrow.\n")
		b.WriteString(digestFooter)
		return b.String()
	}

	for _, p := range projects {
		fmt.Fprintf(&b, "\n## %s\n", p.Name)
		if p.WebURL != "" {
			fmt.Fprintf(&b, "\n[%s](%s)\n", p.Repository, p.WebURL)
		}

		if p.Err != "" {
			fmt.Fprintf(&b, "\n> ⚠️ %s\n", p.Err)
			continue
		}

		if len(p.CompletedTasks) > 0 {
			b.WriteString("\n### Completed\n\n")
			for _, t := range p.CompletedTasks {
				fmt.Fprintf(&b, "- [x] %s\n", t.Content)
			}
		}
		if len(p.InProgressTasks) > 0 {
			b.WriteString("\n### In Progress\n\n")
			for _, t := range p.InProgressTasks {
				fmt.Fprintf(&b, "- [ ] %s\n", t.Content)
			}
		}
	}

	b.WriteString(digestFooter)
	return b.String()
}

const digestFooter = "\n---\n\n*Generated automatically from tracked repositories.*\n"

func digestExcerpt(projects []ProjectUpdate) string {
	taskCount := 0
	sourceCount := 0
	for _, p := range projects {
		if p.Err != "" {
			continue
		}
		taskCount += len(p.CompletedTasks)
		sourceCount++
	}

	if taskCount == 0 {
		return "No completed tasks to report today."
	}
	return fmt.Sprintf("%s completed across %s.",
		pluralize(taskCount, "task", "tasks"),
		pluralize(sourceCount, "project", "projects"))
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// digestTags returns the fixed tag set, extended with a slugified source
// name only when exactly one source is present.
func digestTags(projects []ProjectUpdate) []string {
	tags := append([]string(nil), baseTags...)
	if len(projects) == 1 {
		if slug := meta.Slugify(projects[0].Name); slug != "" {
			tags = append(tags, slug)
		}
	}
	return tags
}
