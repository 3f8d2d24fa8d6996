// Package web exposes the admin HTTP surface: login, source registry CRUD,
// digest and report generation, and a websocket progress feed. Every
// privileged route sits behind the session authenticator; the handlers do
// no work themselves beyond forwarding validated input into the pipeline.
package web

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/daybook/internal/config"
	"github.com/codefionn/daybook/internal/digest"
	"github.com/codefionn/daybook/internal/logger"
	"github.com/codefionn/daybook/internal/publish"
	"github.com/codefionn/daybook/internal/report"
	"github.com/codefionn/daybook/internal/repohost"
	"github.com/codefionn/daybook/internal/session"
	"github.com/codefionn/daybook/internal/store"
	"github.com/codefionn/daybook/internal/vault"
)

// reportsDir is the repository directory scanned for progress reports.
const reportsDir = "content"

// Server is the admin HTTP server.
type Server struct {
	addr       string
	cfg        *config.Config
	auth       *session.Authenticator
	vault      *vault.Vault
	store      *store.Store
	generator  *digest.Generator
	client     *repohost.Client
	hub        *Hub
	router     *httprouter.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
	log        *logger.Logger
}

// NewServer wires the admin server.
func NewServer(cfg *config.Config, auth *session.Authenticator, v *vault.Vault, st *store.Store, client *repohost.Client) *Server {
	s := &Server{
		addr:      fmt.Sprintf("localhost:%d", cfg.Port),
		cfg:       cfg,
		auth:      auth,
		vault:     v,
		store:     st,
		generator: digest.NewGenerator(v, client),
		client:    client,
		hub:       NewHub(),
		router:    httprouter.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger.Global().WithPrefix("web"),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/api/login", s.handleLogin)

	s.router.GET("/api/sources", s.requireAuth(s.handleListSources))
	s.router.POST("/api/sources", s.requireAuth(s.handleAddSource))
	s.router.DELETE("/api/sources/:name", s.requireAuth(s.handleDeleteSource))
	s.router.PUT("/api/sources/:name/token", s.requireAuth(s.handleRotateToken))

	s.router.POST("/api/digest", s.requireAuth(s.handleGenerateDigest))
	s.router.GET("/api/digest/ws", s.requireAuth(s.handleProgressFeed))

	s.router.POST("/api/report", s.requireAuth(s.handleRenderReport))
	s.router.GET("/api/sources/:name/reports", s.requireAuth(s.handleListReports))
	s.router.GET("/api/sources/:name/reports/:file", s.requireAuth(s.handleFetchReport))
}

// Start runs the server until Stop is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go s.hub.Run()

	s.log.Info("admin server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	s.hub.Stop()
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// requireAuth wraps a handler with session verification. Verification is the
// only gate; handlers can assume a valid admin caller.
func (s *Server) requireAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := s.auth.ExtractToken(r)
		if token == "" || s.auth.Verify(token) == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, ps)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "password required")
		return
	}

	if s.cfg.AdminPassword == "" {
		writeError(w, http.StatusForbidden, "no admin password configured")
		return
	}

	expected, err := s.vault.Decrypt(s.cfg.AdminPassword)
	if err != nil {
		s.log.Error("admin password could not be decrypted: %v", err)
		writeError(w, http.StatusInternalServerError, "login unavailable")
		return
	}

	// Compare digests so length never leaks through timing.
	got := sha256.Sum256([]byte(req.Password))
	want := sha256.Sum256([]byte(expected))
	if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	token, err := s.auth.Issue("admin")
	if err != nil {
		s.log.Error("token issue failed: %v", err)
		writeError(w, http.StatusInternalServerError, "login unavailable")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(session.TokenTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// sourceView is the wire form of a registered source. Credentials never
// leave the server, encrypted or otherwise.
type sourceView struct {
	Name       string `json:"name"`
	Repository string `json:"repository"`
	Path       string `json:"path,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Enabled    bool   `json:"enabled"`
	HasToken   bool   `json:"hasToken"`
}

func (s *Server) handleListSources(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	sources, err := s.store.ListSources()
	if err != nil {
		s.log.Error("list sources: %v", err)
		writeError(w, http.StatusInternalServerError, "could not list sources")
		return
	}

	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		views = append(views, sourceView{
			Name:       src.Name,
			Repository: src.Repository,
			Path:       src.Path,
			Branch:     src.Branch,
			Enabled:    src.Enabled,
			HasToken:   src.EncryptedToken != "",
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type addSourceRequest struct {
	Name       string `json:"name"`
	Repository string `json:"repository"`
	Token      string `json:"token,omitempty"`
	Path       string `json:"path,omitempty"`
	Branch     string `json:"branch,omitempty"`
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req addSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Repository == "" {
		writeError(w, http.StatusBadRequest, "name and repository are required")
		return
	}
	if _, ok := repohost.ParseRef(req.Repository); !ok {
		writeError(w, http.StatusBadRequest, "repository reference could not be parsed")
		return
	}

	encrypted := ""
	if req.Token != "" {
		var err error
		encrypted, err = s.vault.Encrypt(req.Token)
		if err != nil {
			s.log.Error("token encryption failed: %v", err)
			writeError(w, http.StatusInternalServerError, "could not store credential")
			return
		}
	}

	_, err := s.store.AddSource(store.Source{
		Name:           req.Name,
		Repository:     req.Repository,
		EncryptedToken: encrypted,
		Path:           req.Path,
		Branch:         req.Branch,
		Enabled:        true,
	})
	if err != nil {
		s.log.Error("add source: %v", err)
		writeError(w, http.StatusConflict, "could not add source")
		return
	}

	s.log.Info("source %s registered", req.Name)
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	if err := s.store.DeleteSource(name); err != nil {
		if errors.Is(err, store.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		s.log.Error("delete source: %v", err)
		writeError(w, http.StatusInternalServerError, "could not delete source")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}

type rotateTokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleRotateToken(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req rotateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}

	encrypted, err := s.vault.Encrypt(req.Token)
	if err != nil {
		s.log.Error("token encryption failed: %v", err)
		writeError(w, http.StatusInternalServerError, "could not store credential")
		return
	}

	if err := s.store.UpdateToken(ps.ByName("name"), encrypted); err != nil {
		if errors.Is(err, store.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		s.log.Error("rotate token: %v", err)
		writeError(w, http.StatusInternalServerError, "could not update credential")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"rotated": ps.ByName("name")})
}

type generateDigestRequest struct {
	Sources []string `json:"sources,omitempty"`
}

func (s *Server) handleGenerateDigest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req generateDigestRequest
	if r.Body != nil {
		// An empty body selects every enabled source.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	sources, err := s.store.DigestSources()
	if err != nil {
		s.log.Error("load sources: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load sources")
		return
	}

	doc, err := s.generator.Generate(r.Context(), sources, req.Sources, func(event, source string) {
		s.hub.Broadcast(event, source)
	})
	if err != nil {
		s.log.Error("digest generation: %v", err)
		writeError(w, http.StatusInternalServerError, "digest generation failed")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleProgressFeed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed: %v", err)
		return
	}

	client := newHubClient(s.hub, conn)
	s.hub.register <- client
	go client.writePump()
	go client.readPump()
}

type renderReportRequest struct {
	Content string `json:"content"`
	Variant string `json:"variant,omitempty"`
}

func (s *Server) handleRenderReport(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req renderReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "report content required")
		return
	}

	doc := publish.Render(report.Parse(req.Content), parseVariant(req.Variant))
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ref, src, ok := s.resolveSource(w, ps.ByName("name"))
	if !ok {
		return
	}

	entries, err := s.client.ListDirectory(r.Context(), ref, reportsDir, src.Branch)
	if err != nil {
		writeError(w, http.StatusBadGateway, describeClientError(err))
		return
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type == "file" {
			files = append(files, entry.Name)
		}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleFetchReport(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ref, src, ok := s.resolveSource(w, ps.ByName("name"))
	if !ok {
		return
	}

	path := reportsDir + "/" + ps.ByName("file")
	content, err := s.client.FetchFile(r.Context(), ref, path, src.Branch)
	if err != nil {
		if errors.Is(err, repohost.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		writeError(w, http.StatusBadGateway, describeClientError(err))
		return
	}

	variant := parseVariant(r.URL.Query().Get("variant"))
	doc := publish.Render(report.Parse(content), variant)
	writeJSON(w, http.StatusOK, doc)
}

// resolveSource loads a registered source and prepares an authenticated
// repository reference. The decrypted token only lives for this request.
func (s *Server) resolveSource(w http.ResponseWriter, name string) (repohost.Ref, *store.Source, bool) {
	src, err := s.store.GetSource(name)
	if err != nil {
		if errors.Is(err, store.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return repohost.Ref{}, nil, false
		}
		s.log.Error("load source: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load source")
		return repohost.Ref{}, nil, false
	}

	ref, ok := repohost.ParseRef(src.Repository)
	if !ok {
		writeError(w, http.StatusConflict, "stored repository reference is invalid")
		return repohost.Ref{}, nil, false
	}

	if src.EncryptedToken != "" {
		token, err := s.vault.Decrypt(src.EncryptedToken)
		if err != nil {
			writeError(w, http.StatusConflict, "stored credential could not be decrypted")
			return repohost.Ref{}, nil, false
		}
		ref.Token = token
	}
	return ref, src, true
}

func describeClientError(err error) string {
	var rateErr *repohost.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		return rateErr.Error()
	case errors.Is(err, repohost.ErrAccessForbidden):
		return "access to the repository was denied"
	default:
		return "repository request failed"
	}
}

func parseVariant(v string) publish.Variant {
	if v == "summary" {
		return publish.Summary
	}
	return publish.Full
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
