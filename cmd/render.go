package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/engine"
	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/monitor"
)

// palette holds the label colors for one theme.
type palette struct {
	user      *color.Color
	assistant *color.Color
	errEntry  *color.Color
	muted     *color.Color
}

func newPalette(dark bool) palette {
	if dark {
		return palette{
			user:      color.New(color.FgHiCyan, color.Bold),
			assistant: color.New(color.FgHiGreen, color.Bold),
			errEntry:  color.New(color.FgHiRed, color.Bold),
			muted:     color.New(color.FgHiBlack),
		}
	}
	return palette{
		user:      color.New(color.FgBlue, color.Bold),
		assistant: color.New(color.FgGreen, color.Bold),
		errEntry:  color.New(color.FgRed, color.Bold),
		muted:     color.New(color.Faint),
	}
}

// errorIndexes numbers the error entries of a timeline from 1, in timeline
// order. /retry n refers to these numbers.
func errorIndexes(timeline []lxassist.Message) map[string]int {
	idx := make(map[string]int)
	n := 0
	for _, m := range timeline {
		if m.IsError() {
			n++
			idx[m.ID] = n
		}
	}
	return idx
}

// nthError returns the id of the nth error entry, or of the last one when n
// is 0.
func nthError(timeline []lxassist.Message, n int) (string, bool) {
	var ids []string
	for _, m := range timeline {
		if m.IsError() {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 || n < 0 || n > len(ids) {
		return "", false
	}
	if n == 0 {
		return ids[len(ids)-1], true
	}
	return ids[n-1], true
}

func renderEntry(w io.Writer, p palette, m lxassist.Message, errIndex int) {
	stamp := p.muted.Sprint(m.Timestamp.Local().Format("15:04"))
	switch m.Sender {
	case lxassist.SenderUser:
		fmt.Fprintf(w, "%s %s %s\n", stamp, p.user.Sprint("You>"), m.Content)
	case lxassist.SenderAssistant:
		fmt.Fprintf(w, "%s %s %s\n", stamp, p.assistant.Sprint("Assistant>"), m.Content)
	case lxassist.SenderError:
		label := p.errEntry.Sprintf("Error [%d]>", errIndex)
		fmt.Fprintf(w, "%s %s %s %s\n", stamp, label, m.Content,
			p.muted.Sprintf("(type /retry %d)", errIndex))
	}
}

func renderTimeline(w io.Writer, p palette, timeline []lxassist.Message) {
	idx := errorIndexes(timeline)
	for _, m := range timeline {
		renderEntry(w, p, m, idx[m.ID])
	}
}

// badge renders the connection indicator.
func badge(st monitor.State) string {
	switch st.Status {
	case monitor.StatusConnected:
		return color.GreenString("● Connected")
	case monitor.StatusUnavailable:
		return color.RedString("● Disconnected")
	default:
		return color.YellowString("● Checking")
	}
}

func renderStatus(w io.Writer, snap engine.Snapshot) {
	fmt.Fprintf(w, "Backend:    %s %s\n", snap.BaseURL, badge(snap.Connection))
	if !snap.Connection.LastCheckedAt.IsZero() {
		fmt.Fprintf(w, "Checked:    %s\n", snap.Connection.LastCheckedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if snap.Connection.ConsecutiveFailures > 0 {
		fmt.Fprintf(w, "Failures:   %d\n", snap.Connection.ConsecutiveFailures)
	}
	if snap.Connection.LastError != "" {
		fmt.Fprintf(w, "Last error: %s\n", snap.Connection.LastError)
	}
	if snap.Session != nil {
		fmt.Fprintf(w, "User:       %s (%s)\n", snap.Session.GetDisplayName(), snap.Session.ID)
	}
	if snap.CurrentConversationID != "" {
		fmt.Fprintf(w, "Current:    %s\n", snap.CurrentConversationID)
	}
	fmt.Fprintf(w, "Entries:    %d\n", len(snap.Timeline))
}

// showSpinner displays a spinner animation while waiting for response
func showSpinner(done chan bool) {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	i := 0
	for {
		select {
		case <-done:
			// Clear the spinner line
			fmt.Fprint(os.Stderr, "\r\033[K")
			return
		default:
			fmt.Fprintf(os.Stderr, "\r%s Waiting for response...", spinners[i])
			i = (i + 1) % len(spinners)
			time.Sleep(80 * time.Millisecond)
		}
	}
}

// withSpinner runs fn while the spinner is shown.
func withSpinner(fn func()) {
	done := make(chan bool)
	go showSpinner(done)
	fn()
	done <- true
	close(done)
}
