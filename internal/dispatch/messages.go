package dispatch

import "fmt"

// Replies returned synchronously from Submit.
const (
	msgUsage         = "Usage: /agent-task [--model opus|sonnet|haiku] <description>"
	msgBusy          = "A task is already running. Wait for it to complete."
	msgThreadFailed  = "Failed to create thread. Check Slack connection."
	msgOverBudget    = "Monthly budget exhausted. New tasks are paused until next month."
	msgDropped       = "A queued task could not be started: this channel is no longer configured.\n\n> %s"
	msgShutdownQueue = "dispatcher shutting down"
)

func notConfigured(channelsDir string) string {
	if channelsDir == "" {
		return "This channel is not configured. Add a channel file to the channels directory."
	}
	return fmt.Sprintf("This channel is not configured. Add a config file in %s/", channelsDir)
}

func askChoices(runningDescription string) string {
	return fmt.Sprintf("I'm currently working on: *%s*\n\n"+
		"What should I do with this new task?\n"+
		"• Reply *queue* to run after current task\n"+
		"• Reply *parallel* to run alongside (may conflict)\n"+
		"• Reply *cancel* to stop current task and start this", runningDescription)
}

func queued(position int) string {
	return fmt.Sprintf("Task queued. Will run after current task completes. Position in queue: %d", position)
}

func starting(model string) string {
	return fmt.Sprintf("Starting task in thread. Model: %s", model)
}

func budgetWarning(percent float64) string {
	return fmt.Sprintf("\n\n:warning: Monthly budget at %.0f%%", percent)
}
