package gitops

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mattjoyce/slackagent/internal/notify"
)

// BranchName builds "<prefix>/<channel>/<taskID>". The channel segment is
// lower-cased and reduced to characters git accepts in a ref component.
func BranchName(prefix, channelName, taskID string) string {
	if prefix == "" {
		prefix = "agent"
	}
	return fmt.Sprintf("%s/%s/%s", prefix, SanitizeRefComponent(channelName), taskID)
}

// SanitizeRefComponent lower-cases s and replaces anything outside [a-z0-9._-] with '-'.
func SanitizeRefComponent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	lastDash := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '.' || c == '_' || c == '-'
		if !ok {
			c = '-'
		}
		if c == '-' {
			if lastDash {
				continue
			}
			lastDash = true
		} else {
			lastDash = false
		}
		b.WriteByte(c)
	}
	out := strings.Trim(b.String(), "-.")
	out = strings.ReplaceAll(out, "..", ".")
	if out == "" {
		return "channel"
	}
	return out
}

var diffStatsPattern = regexp.MustCompile(`(\d+) files? changed(?:, (\d+) insertions?\(\+\))?(?:, (\d+) deletions?\(-\))?`)

// ParseDiffStats reduces `git diff --stat` output to "N files (+I / -D)".
func ParseDiffStats(out string) string {
	m := diffStatsPattern.FindStringSubmatch(out)
	if m == nil {
		return "no changes"
	}
	files, _ := strconv.Atoi(m[1])
	ins, dels := 0, 0
	if m[2] != "" {
		ins, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		dels, _ = strconv.Atoi(m[3])
	}
	return fmt.Sprintf("%d files (+%d / -%d)", files, ins, dels)
}

const testPreviewLimit = 500

// SummarizeTestOutput condenses the output of a successful test run.
func SummarizeTestOutput(out string) string {
	if strings.Contains(out, "BUILD SUCCESSFUL") || strings.Contains(out, "Tests passed") {
		return "All tests passed"
	}
	if strings.TrimSpace(out) == "" {
		return "All tests passed"
	}
	return notify.Truncate(out, testPreviewLimit)
}

// extractPRURL finds a GitHub pull request URL in gh output.
func extractPRURL(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "/pull/") {
			continue
		}
		if idx := strings.Index(line, "https://"); idx >= 0 {
			url := line[idx:]
			if end := strings.IndexAny(url, " \t"); end > 0 {
				url = url[:end]
			}
			return url
		}
	}
	return ""
}
