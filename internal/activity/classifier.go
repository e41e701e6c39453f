package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Classifier answers recency and volume questions about one role's holders.
type Classifier struct {
	query  LogQuery
	loc    *time.Location
	logger zerolog.Logger
}

// NewClassifier creates a classifier reading role's log through api.
func NewClassifier(role Role, api LogAPI, logger zerolog.Logger) (*Classifier, error) {
	q, err := NewLogQuery(role.Kind, api)
	if err != nil {
		return nil, err
	}
	return NewClassifierWithQuery(role, q, logger), nil
}

// NewClassifierWithQuery creates a classifier over an explicit query.
func NewClassifierWithQuery(role Role, q LogQuery, logger zerolog.Logger) *Classifier {
	return &Classifier{
		query:  q,
		loc:    time.Local,
		logger: logger.With().Str("component", "classifier").Str("role", role.Group).Logger(),
	}
}

// RecentTimestamps returns up to n timestamps of user's most recent actions,
// newest first, in local time. A short history yields fewer than n.
func (c *Classifier) RecentTimestamps(ctx context.Context, user string, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	stamps := make([]time.Time, 0, n)
	for entry, err := range c.query(ctx, Request{User: user, Limit: n}) {
		if err != nil {
			return nil, fmt.Errorf("recent actions of %s: %w", user, err)
		}
		stamps = append(stamps, entry.Timestamp.In(c.loc))
		if len(stamps) == n {
			break
		}
	}
	c.logger.Debug().Str("user", user).Int("found", len(stamps)).Int("wanted", n).Msg("fetched recent timestamps")
	return stamps, nil
}

// CountActions counts user's actions in [start, stop). The log APIs include
// both bounds, so an entry stamped exactly at stop is dropped here.
func (c *Classifier) CountActions(ctx context.Context, user string, start, stop time.Time) (int, error) {
	count := 0
	for entry, err := range c.query(ctx, Request{User: user, Start: start, Stop: stop}) {
		if err != nil {
			return 0, fmt.Errorf("counting actions of %s: %w", user, err)
		}
		if inWindow(entry.Timestamp, start, stop) {
			count++
		}
	}
	c.logger.Debug().Str("user", user).Int("count", count).Msg("counted actions")
	return count, nil
}

func inWindow(t, start, stop time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !stop.IsZero() && !t.Before(stop) {
		return false
	}
	return true
}

// IsActive reports whether the newest of recent is at or after cutoff. No
// timestamps at all means inactive.
func IsActive(recent []time.Time, cutoff time.Time) bool {
	if len(recent) == 0 {
		return false
	}
	return !recent[0].Before(cutoff)
}

// Record is the activity of one role holder in one run.
type Record struct {
	User      string
	Count     int
	Recent    []time.Time
	Active    bool
	Exemption string
}

// LastAction returns the newest timestamp, if any.
func (r Record) LastAction() (time.Time, bool) {
	if len(r.Recent) == 0 {
		return time.Time{}, false
	}
	return r.Recent[0], true
}
