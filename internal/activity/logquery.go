package activity

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/p-blackswan/inactivity-report/internal/mediawiki"
)

// LogEntry is one logged action.
type LogEntry struct {
	Timestamp time.Time
}

// Request asks for a user's log entries. Start and Stop bound the window
// chronologically (Start is the earlier instant); a zero value leaves that end
// open. A positive Limit caps the number of entries.
type Request struct {
	User  string
	Start time.Time
	Stop  time.Time
	Limit int
}

// LogQuery yields a user's log entries newest first. The sequence is lazy and
// may be abandoned at any point; a user without entries yields nothing.
type LogQuery func(ctx context.Context, req Request) iter.Seq2[LogEntry, error]

// LogAPI is the part of the wiki API the log queries read from.
type LogAPI interface {
	CheckUserLog(ctx context.Context, q mediawiki.CheckUserLogQuery) iter.Seq2[mediawiki.LogEvent, error]
	LogEvents(ctx context.Context, q mediawiki.LogEventsQuery) iter.Seq2[mediawiki.LogEvent, error]
}

// NewLogQuery builds the query strategy for kind.
func NewLogQuery(kind Kind, api LogAPI) (LogQuery, error) {
	switch kind {
	case KindCheckUser:
		return checkUserQuery(api), nil
	case KindOversight:
		return oversightQuery(api), nil
	}
	return nil, fmt.Errorf("no log query for %s", kind)
}

// checkUserQuery reads the CheckUser log, whose range runs from the later
// instant to the earlier one: Start goes in the "to" slot, Stop in "from".
func checkUserQuery(api LogAPI) LogQuery {
	return func(ctx context.Context, req Request) iter.Seq2[LogEntry, error] {
		q := mediawiki.CheckUserLogQuery{User: req.User, Limit: req.Limit}
		if !req.Start.IsZero() {
			q.To = req.Start
		}
		if !req.Stop.IsZero() {
			q.From = req.Stop
		}
		return entries(api.CheckUserLog(ctx, q))
	}
}

// oversightQuery reads suppression actions from the event log. The window is
// passed through as given.
func oversightQuery(api LogAPI) LogQuery {
	return func(ctx context.Context, req Request) iter.Seq2[LogEntry, error] {
		return entries(api.LogEvents(ctx, mediawiki.LogEventsQuery{
			Type:  "suppress",
			User:  req.User,
			Prop:  []string{"timestamp"},
			Start: req.Start,
			Stop:  req.Stop,
			Limit: req.Limit,
		}))
	}
}

func entries(events iter.Seq2[mediawiki.LogEvent, error]) iter.Seq2[LogEntry, error] {
	return func(yield func(LogEntry, error) bool) {
		for ev, err := range events {
			if err != nil {
				yield(LogEntry{}, err)
				return
			}
			if !yield(LogEntry{Timestamp: ev.Timestamp}, nil) {
				return
			}
		}
	}
}
