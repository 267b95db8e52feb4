package gitops

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBranchName(t *testing.T) {
	assert.Equal(t, "agent/slack-agent/abc123", BranchName("agent", "slack-agent", "abc123"))
	assert.Equal(t, "agent/slack-agent/abc123", BranchName("", "slack-agent", "abc123"))
	assert.Equal(t, "bot/my-team-repo/ff00aa11", BranchName("bot", "My Team  Repo", "ff00aa11"))
}

func TestSanitizeRefComponent(t *testing.T) {
	cases := map[string]string{
		"slack-agent":    "slack-agent",
		"Slack Agent":    "slack-agent",
		"#general":       "general",
		"a~b^c:d?e*f[g]": "a-b-c-d-e-f-g",
		"..hidden..":     "hidden",
		"a..b":           "a.b",
		"   ":            "channel",
		"ünïcode":        "n-code",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeRefComponent(in), "input %q", in)
	}
}

func TestParseDiffStats(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full", " a.go | 10 +++++-----\n 2 files changed, 12 insertions(+), 3 deletions(-)\n", "2 files (+12 / -3)"},
		{"single file insertions only", " 1 file changed, 1 insertion(+)\n", "1 files (+1 / -0)"},
		{"deletions only", " 3 files changed, 7 deletions(-)\n", "3 files (+0 / -7)"},
		{"empty", "", "no changes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDiffStats(tt.in))
		})
	}
}

func TestSummarizeTestOutput(t *testing.T) {
	assert.Equal(t, "All tests passed", SummarizeTestOutput("...\nBUILD SUCCESSFUL in 3s\n"))
	assert.Equal(t, "All tests passed", SummarizeTestOutput("Tests passed: 12"))
	assert.Equal(t, "ok  \tpkg\t0.1s\n", SummarizeTestOutput("ok  \tpkg\t0.1s\n"))

	long := strings.Repeat("x", 800)
	assert.Equal(t, strings.Repeat("x", 500)+"...", SummarizeTestOutput(long))

	// 3-byte runes: byte 500 falls inside one, so the cut backs off to 498.
	euros := SummarizeTestOutput(strings.Repeat("€", 300))
	assert.True(t, utf8.ValidString(euros))
	assert.Equal(t, strings.Repeat("€", 166)+"...", euros)
}

func TestExtractPRURL(t *testing.T) {
	out := "Creating pull request for agent/dev/abc into main\n\nhttps://github.com/acme/app/pull/42\n"
	assert.Equal(t, "https://github.com/acme/app/pull/42", extractPRURL(out))

	exists := `a pull request for branch "x" into branch "main" already exists:` + "\nhttps://github.com/acme/app/pull/7 (open)"
	assert.Equal(t, "https://github.com/acme/app/pull/7", extractPRURL(exists))

	assert.Empty(t, extractPRURL("no url here"))
}
