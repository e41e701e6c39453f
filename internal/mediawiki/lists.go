package mediawiki

import (
	"context"
	"encoding/json"
	"iter"
	"net/url"
	"strings"
	"time"
)

// User is an entry of list=allusers.
type User struct {
	ID   int    `json:"userid"`
	Name string `json:"name"`
}

// LogEvent is a single logged action. Only Timestamp is guaranteed; the
// remaining fields depend on the log and the requested properties.
type LogEvent struct {
	ID        int       `json:"logid,omitempty"`
	Type      string    `json:"type,omitempty"`
	Action    string    `json:"action,omitempty"`
	User      string    `json:"user,omitempty"`
	Title     string    `json:"title,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AllUsers enumerates the members of a user group.
func (c *Client) AllUsers(ctx context.Context, group string) iter.Seq2[User, error] {
	params := url.Values{}
	params.Set("list", "allusers")
	params.Set("augroup", group)
	return paginate(ctx, c, params, "aulimit", 0, func(q map[string]json.RawMessage) ([]User, error) {
		var users []User
		err := member(q, "allusers", &users)
		return users, err
	})
}

// CheckUserLogQuery selects entries of the CheckUser audit log. The log is
// enumerated newest first, so From is the later instant and To the earlier
// one. Zero times leave the corresponding end open.
type CheckUserLogQuery struct {
	User  string
	From  time.Time
	To    time.Time
	Limit int
}

type checkUserLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	CheckUser string    `json:"checkuser"`
	Type      string    `json:"type"`
	Reason    string    `json:"reason"`
	Target    string    `json:"target"`
}

// CheckUserLog lists checks performed by q.User (list=checkuserlog).
func (c *Client) CheckUserLog(ctx context.Context, q CheckUserLogQuery) iter.Seq2[LogEvent, error] {
	params := url.Values{}
	params.Set("list", "checkuserlog")
	params.Set("culuser", q.User)
	if !q.From.IsZero() {
		params.Set("culfrom", formatTimestamp(q.From))
	}
	if !q.To.IsZero() {
		params.Set("culto", formatTimestamp(q.To))
	}
	return paginate(ctx, c, params, "cullimit", q.Limit, func(raw map[string]json.RawMessage) ([]LogEvent, error) {
		var log struct {
			Entries []checkUserLogEntry `json:"entries"`
		}
		if err := member(raw, "checkuserlog", &log); err != nil {
			return nil, err
		}
		events := make([]LogEvent, 0, len(log.Entries))
		for _, e := range log.Entries {
			events = append(events, LogEvent{
				Type:      "checkuser",
				Action:    e.Type,
				User:      e.CheckUser,
				Title:     e.Target,
				Comment:   e.Reason,
				Timestamp: e.Timestamp,
			})
		}
		return events, nil
	})
}

// LogEventsQuery selects entries of the generic event log. Start and Stop
// delimit the window chronologically (Start earlier than Stop); results are
// still returned newest first.
type LogEventsQuery struct {
	Type  string
	User  string
	Prop  []string
	Start time.Time
	Stop  time.Time
	Limit int
}

// LogEvents lists entries of the event log (list=logevents).
func (c *Client) LogEvents(ctx context.Context, q LogEventsQuery) iter.Seq2[LogEvent, error] {
	params := url.Values{}
	params.Set("list", "logevents")
	params.Set("ledir", "older")
	if q.Type != "" {
		params.Set("letype", q.Type)
	}
	if q.User != "" {
		params.Set("leuser", q.User)
	}
	if len(q.Prop) > 0 {
		params.Set("leprop", strings.Join(q.Prop, "|"))
	}
	// With ledir=older lestart is the newer bound.
	if !q.Stop.IsZero() {
		params.Set("lestart", formatTimestamp(q.Stop))
	}
	if !q.Start.IsZero() {
		params.Set("leend", formatTimestamp(q.Start))
	}
	return paginate(ctx, c, params, "lelimit", q.Limit, func(raw map[string]json.RawMessage) ([]LogEvent, error) {
		var events []LogEvent
		err := member(raw, "logevents", &events)
		return events, err
	})
}
