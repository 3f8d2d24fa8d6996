package repohost

import (
	"regexp"
	"strings"
)

// Ref identifies one external content source. Token is the decrypted
// credential and is only ever held in memory for the duration of one fetch.
type Ref struct {
	Owner string
	Repo  string
	Token string
}

var (
	webURLRegex = regexp.MustCompile(`^https?://github\.com/([^/\s]+)/([^/\s]+?)(?:\.git)?/?$`)
	sshRegex    = regexp.MustCompile(`^git@github\.com:([^/\s]+)/([^/\s]+?)(?:\.git)?$`)
	bareRegex   = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)/([A-Za-z0-9][A-Za-z0-9._-]*?)(?:\.git)?$`)
)

// ParseRef normalizes a repository reference into owner and repo. Accepted
// syntaxes: full web URL (with or without a .git suffix), SSH-style
// git@host:owner/repo.git, and bare owner/repo. Anything else yields ok=false.
func ParseRef(raw string) (Ref, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, false
	}

	for _, re := range []*regexp.Regexp{webURLRegex, sshRegex, bareRegex} {
		if m := re.FindStringSubmatch(raw); m != nil {
			return Ref{Owner: m[1], Repo: m[2]}, true
		}
	}
	return Ref{}, false
}

// String returns the canonical owner/repo form.
func (r Ref) String() string {
	return r.Owner + "/" + r.Repo
}

// WebURL returns the browsable repository URL.
func (r Ref) WebURL() string {
	return "https://github.com/" + r.Owner + "/" + r.Repo
}
