package notify

import (
	"fmt"
	"strings"
)

// SummaryPreviewLimit caps the generation output quoted in a completion message.
const SummaryPreviewLimit = 500

const (
	errorPreviewLimit = 1500
	testsPreviewLimit = 1000
)

// PRFailedMarker replaces the PR link when PR creation fails.
const PRFailedMarker = "PR creation failed"

// ThreadHeader is the root message of a task thread.
func ThreadHeader(channelName, description string) string {
	return fmt.Sprintf("*%s*\n\n%s", channelName, description)
}

// Starting is the first reply in a task thread.
func Starting(model, branch string) string {
	msg := fmt.Sprintf("*Starting task...*\nModel: %s", model)
	if branch != "" {
		msg += "\nBranch: `" + branch + "`"
	}
	return msg
}

// Completion describes a successful task.
type Completion struct {
	Summary   string
	Cost      string
	DiffStats string
	Tests     string
	PRURL     string
}

// Completed renders the completion reply.
func Completed(c Completion) string {
	pr := c.PRURL
	if pr == "" {
		pr = PRFailedMarker
	}
	var b strings.Builder
	b.WriteString("*Task complete!*\n\n")
	fmt.Fprintf(&b, "*Summary:* %s\n\n", Truncate(c.Summary, SummaryPreviewLimit))
	fmt.Fprintf(&b, "*Cost:* %s\n", c.Cost)
	fmt.Fprintf(&b, "*Changed:* %s\n", c.DiffStats)
	fmt.Fprintf(&b, "*Tests:* %s\n", Truncate(c.Tests, testsPreviewLimit))
	fmt.Fprintf(&b, "*PR:* %s", pr)
	return b.String()
}

// Failed renders the failure reply. When the channel's failure policy is ask,
// the choices are listed for the human.
func Failed(errText, onFailure string) string {
	var b strings.Builder
	b.WriteString("*Task failed*\n\n")
	fmt.Fprintf(&b, "*Error:* %s\n\n", Truncate(errText, errorPreviewLimit))
	switch onFailure {
	case "ask", "":
		b.WriteString("What should I do?\n")
		b.WriteString("• *retry* - Try again\n")
		b.WriteString("• *stop* - Abandon task\n")
		b.WriteString("• *draft* - Create draft PR anyway\n")
	default:
		fmt.Fprintf(&b, "Failure policy: *%s*\n", onFailure)
	}
	return b.String()
}

// Cancelled is posted once when a task is cancelled.
const Cancelled = "Task cancelled."

// Truncate shortens s to at most n bytes on a rune boundary, marking the cut.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
