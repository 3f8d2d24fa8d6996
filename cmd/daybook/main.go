package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/codefionn/daybook/internal/config"
	"github.com/codefionn/daybook/internal/digest"
	"github.com/codefionn/daybook/internal/logger"
	"github.com/codefionn/daybook/internal/pidfile"
	"github.com/codefionn/daybook/internal/publish"
	"github.com/codefionn/daybook/internal/report"
	"github.com/codefionn/daybook/internal/repohost"
	"github.com/codefionn/daybook/internal/session"
	"github.com/codefionn/daybook/internal/store"
	"github.com/codefionn/daybook/internal/vault"
	"github.com/codefionn/daybook/internal/web"
)

const maxPasswordAttempts = 3

type options struct {
	serve        bool
	genDigest    bool
	sources      string
	reportPath   string
	summary      bool
	outPath      string
	preview      bool
	addSource    string
	repo         string
	srcPath      string
	branch       string
	withToken    bool
	listSources  bool
	removeSource string
	setPassword  bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	var opts options
	flag.BoolVar(&opts.serve, "serve", false, "run the admin server")
	flag.BoolVar(&opts.genDigest, "digest", false, "generate today's digest and exit")
	flag.StringVar(&opts.sources, "sources", "", "comma-separated source names to include (default: all)")
	flag.StringVar(&opts.reportPath, "report", "", "render a progress report from a local markdown file")
	flag.BoolVar(&opts.summary, "summary", false, "render the summary report variant")
	flag.StringVar(&opts.outPath, "out", "", "write rendered markdown to this file instead of stdout")
	flag.BoolVar(&opts.preview, "preview", false, "render the result in the terminal")
	flag.StringVar(&opts.addSource, "add-source", "", "register a source with the given name")
	flag.StringVar(&opts.repo, "repo", "", "repository reference for -add-source")
	flag.StringVar(&opts.srcPath, "path", "", "checklist path within the repository")
	flag.StringVar(&opts.branch, "branch", "", "branch to fetch from")
	flag.BoolVar(&opts.withToken, "with-token", false, "prompt for an access token when adding a source")
	flag.BoolVar(&opts.listSources, "list-sources", false, "list registered sources")
	flag.StringVar(&opts.removeSource, "remove-source", "", "remove the named source")
	flag.BoolVar(&opts.setPassword, "set-admin-password", false, "set the admin password for the server")
	flag.Parse()

	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if initErr := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); initErr != nil {
		return fmt.Errorf("initialize logger: %w", initErr)
	}
	defer func() {
		if err != nil {
			logger.Error("fatal: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	switch {
	case opts.serve:
		return runServe(cfg)
	case opts.genDigest:
		return runDigest(cfg, opts)
	case opts.reportPath != "":
		return runReport(opts)
	case opts.addSource != "":
		return runAddSource(cfg, opts)
	case opts.listSources:
		return runListSources(cfg)
	case opts.removeSource != "":
		return runRemoveSource(cfg, opts.removeSource)
	case opts.setPassword:
		return runSetAdminPassword(cfg)
	default:
		flag.Usage()
		return nil
	}
}

func runServe(cfg *config.Config) error {
	secret, err := masterSecret(cfg)
	if err != nil {
		return err
	}

	pid := pidfile.New(filepath.Join(filepath.Dir(cfg.DatabasePath), "daybook.pid"))
	if err := pid.Acquire(); err != nil {
		return err
	}
	defer func() {
		if releaseErr := pid.Release(); releaseErr != nil {
			logger.Warn("release pidfile: %v", releaseErr)
		}
	}()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	v := vault.New(secret, vault.Options{AllowInsecureFallback: cfg.AllowInsecureVault})
	auth := session.New(secret)
	client := repohost.NewClient(repohost.Config{})
	srv := web.NewServer(cfg, auth, v, st, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if watchErr := config.Watch(ctx, config.GetConfigPath(), func(fresh *config.Config) {
			logger.Global().SetLevel(logger.ParseLevel(fresh.LogLevel))
		}); watchErr != nil && !errors.Is(watchErr, context.Canceled) {
			logger.Warn("config watch stopped: %v", watchErr)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		logger.Info("shutting down")
		return srv.Stop()
	}
}

func runDigest(cfg *config.Config, opts options) error {
	secret, err := masterSecret(cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	sources, err := st.DigestSources()
	if err != nil {
		return err
	}

	var selected []string
	if opts.sources != "" {
		for _, name := range strings.Split(opts.sources, ",") {
			selected = append(selected, strings.TrimSpace(name))
		}
	}

	v := vault.New(secret, vault.Options{AllowInsecureFallback: cfg.AllowInsecureVault})
	gen := digest.NewGenerator(v, repohost.NewClient(repohost.Config{}))

	doc, err := gen.Generate(context.Background(), sources, selected, func(event, source string) {
		if source != "" {
			fmt.Fprintf(os.Stderr, "%s %s\n", event, source)
		}
	})
	if err != nil {
		return err
	}

	return emit(doc.Content, opts)
}

func runReport(opts options) error {
	data, err := os.ReadFile(opts.reportPath)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	variant := publish.Full
	if opts.summary {
		variant = publish.Summary
	}

	doc := publish.Render(report.Parse(string(data)), variant)
	return emit(doc.Content, opts)
}

func runAddSource(cfg *config.Config, opts options) error {
	if opts.repo == "" {
		return errors.New("-repo is required with -add-source")
	}
	if _, ok := repohost.ParseRef(opts.repo); !ok {
		return fmt.Errorf("repository reference %q could not be parsed", opts.repo)
	}

	encrypted := ""
	if opts.withToken {
		secret, err := masterSecret(cfg)
		if err != nil {
			return err
		}
		token, err := promptForSecret("Access token: ")
		if err != nil {
			return err
		}
		v := vault.New(secret, vault.Options{AllowInsecureFallback: cfg.AllowInsecureVault})
		encrypted, err = v.Encrypt(token)
		if err != nil {
			return err
		}
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.AddSource(store.Source{
		Name:           opts.addSource,
		Repository:     opts.repo,
		EncryptedToken: encrypted,
		Path:           opts.srcPath,
		Branch:         opts.branch,
		Enabled:        true,
	}); err != nil {
		return err
	}

	fmt.Printf("Source %s registered.\n", opts.addSource)
	return nil
}

func runListSources(cfg *config.Config) error {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	sources, err := st.ListSources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("No sources registered.")
		return nil
	}

	for _, src := range sources {
		state := "enabled"
		if !src.Enabled {
			state = "disabled"
		}
		token := ""
		if src.EncryptedToken != "" {
			token = ", private"
		}
		fmt.Printf("%s\t%s (%s%s)\n", src.Name, src.Repository, state, token)
	}
	return nil
}

func runRemoveSource(cfg *config.Config, name string) error {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteSource(name); err != nil {
		return err
	}
	fmt.Printf("Source %s removed.\n", name)
	return nil
}

func runSetAdminPassword(cfg *config.Config) error {
	secret, err := masterSecret(cfg)
	if err != nil {
		return err
	}

	password, err := promptForSecret("New admin password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	v := vault.New(secret, vault.Options{AllowInsecureFallback: cfg.AllowInsecureVault})
	encrypted, err := v.Encrypt(password)
	if err != nil {
		return err
	}

	cfg.AdminPassword = encrypted
	if err := cfg.Save(config.GetConfigPath()); err != nil {
		return err
	}
	fmt.Println("Admin password updated.")
	return nil
}

// masterSecret resolves the master secret from the environment, falling back
// to an interactive prompt with a bounded number of attempts.
func masterSecret(cfg *config.Config) (string, error) {
	if secret := strings.TrimSpace(os.Getenv(config.MasterSecretEnv)); secret != "" {
		return secret, nil
	}
	if cfg.AllowInsecureVault {
		return "", nil
	}

	for attempt := 0; attempt < maxPasswordAttempts; attempt++ {
		secret, err := promptForSecret("Master secret: ")
		if err != nil {
			return "", err
		}
		if secret != "" {
			return secret, nil
		}
		fmt.Fprintln(os.Stderr, "Master secret cannot be empty, try again.")
	}
	return "", errors.New("too many empty master secret attempts")
}

func promptForSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// emit writes rendered markdown to the requested destination, optionally
// rendering it for the terminal first.
func emit(content string, opts options) error {
	if opts.preview {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			if pretty, renderErr := renderer.Render(content); renderErr == nil {
				content = pretty
			}
		}
	}

	if opts.outPath != "" {
		return os.WriteFile(opts.outPath, []byte(content), 0644)
	}
	fmt.Print(content)
	return nil
}
