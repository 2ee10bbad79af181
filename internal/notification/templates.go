package notification

import (
	"fmt"
	"strings"
)

type message struct {
	to      string
	subject string
	body    string
}

// renderEvent produces one message per recipient. Both parties are mailed
// for every lifecycle event.
func renderEvent(event Event) []message {
	switch event.Type {
	case EventBookingConfirmed:
		return confirmedMessages(event)
	case EventBookingCancelled:
		return cancelledMessages(event)
	default:
		return nil
	}
}

func confirmedMessages(e Event) []message {
	when := e.ScheduledAt.Format("Mon, 02 Jan 2006 at 15:04 MST")
	kind := displayKind(e.SessionKind)

	var out []message
	if e.StudentEmail != "" {
		out = append(out, message{
			to:      e.StudentEmail,
			subject: fmt.Sprintf("Your %s session is confirmed", kind),
			body: fmt.Sprintf(
				"<p>Your %s session with %s is confirmed.</p>"+
					"<p><b>When:</b> %s (%d minutes)</p>"+
					"<p><b>Join link:</b> <a href=%q>%s</a></p>",
				kind, e.MentorName, when, e.DurationMinutes, e.SessionLink, e.SessionLink,
			),
		})
	}
	if e.MentorEmail != "" {
		out = append(out, message{
			to:      e.MentorEmail,
			subject: fmt.Sprintf("New %s session booked", kind),
			body: fmt.Sprintf(
				"<p>A student booked a %s session with you.</p>"+
					"<p><b>When:</b> %s (%d minutes)</p>",
				kind, when, e.DurationMinutes,
			),
		})
	}
	return out
}

func cancelledMessages(e Event) []message {
	when := e.ScheduledAt.Format("Mon, 02 Jan 2006 at 15:04 MST")
	kind := displayKind(e.SessionKind)

	reason := ""
	if e.CancelReason != "" {
		reason = fmt.Sprintf("<p><b>Reason:</b> %s</p>", e.CancelReason)
	}

	body := fmt.Sprintf(
		"<p>The %s session scheduled for %s was cancelled by the %s.</p>%s",
		kind, when, e.CancelledBy, reason,
	)

	var out []message
	if e.StudentEmail != "" {
		out = append(out, message{
			to:      e.StudentEmail,
			subject: fmt.Sprintf("Your %s session was cancelled", kind),
			body:    body,
		})
	}
	if e.MentorEmail != "" {
		out = append(out, message{
			to:      e.MentorEmail,
			subject: fmt.Sprintf("A %s session was cancelled", kind),
			body:    body,
		})
	}
	return out
}

func displayKind(kind string) string {
	kind = strings.ToLower(kind)
	if kind == "" {
		return "wellness"
	}
	return kind
}
