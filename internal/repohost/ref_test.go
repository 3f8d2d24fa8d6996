package repohost

import "testing"

func TestParseRef(t *testing.T) {
	cases := []struct {
		raw   string
		owner string
		repo  string
		ok    bool
	}{
		{"https://github.com/alice/notes", "alice", "notes", true},
		{"https://github.com/alice/notes/", "alice", "notes", true},
		{"https://github.com/alice/notes.git", "alice", "notes", true},
		{"http://github.com/alice/notes", "alice", "notes", true},
		{"git@github.com:alice/notes.git", "alice", "notes", true},
		{"git@github.com:alice/notes", "alice", "notes", true},
		{"alice/notes", "alice", "notes", true},
		{"alice/notes.git", "alice", "notes", true},
		{"alice/my.dotted.repo", "alice", "my.dotted.repo", true},
		{"", "", "", false},
		{"   ", "", "", false},
		{"not a reference", "", "", false},
		{"https://gitlab.com/alice/notes", "", "", false},
		{"alice", "", "", false},
		{"alice/notes/extra", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			ref, ok := ParseRef(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ParseRef(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
			}
			if !tc.ok {
				return
			}
			if ref.Owner != tc.owner || ref.Repo != tc.repo {
				t.Errorf("ParseRef(%q) = %s/%s, want %s/%s", tc.raw, ref.Owner, ref.Repo, tc.owner, tc.repo)
			}
		})
	}
}

func TestRefWebURL(t *testing.T) {
	ref := Ref{Owner: "alice", Repo: "notes"}
	if got := ref.WebURL(); got != "https://github.com/alice/notes" {
		t.Errorf("WebURL = %q", got)
	}
	if got := ref.String(); got != "alice/notes" {
		t.Errorf("String = %q", got)
	}
}
