package activity

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
	"github.com/p-blackswan/inactivity-report/internal/mediawiki"
)

var now = time.Date(2015, 7, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.Add(-time.Duration(d) * 24 * time.Hour)
}

// fakeLogAPI serves per-user histories (newest first) with the API's
// inclusive bound semantics.
type fakeLogAPI struct {
	history   map[string][]time.Time
	err       error
	cuQueries []mediawiki.CheckUserLogQuery
	leQueries []mediawiki.LogEventsQuery
	yielded   int
}

func (f *fakeLogAPI) CheckUserLog(_ context.Context, q mediawiki.CheckUserLogQuery) iter.Seq2[mediawiki.LogEvent, error] {
	f.cuQueries = append(f.cuQueries, q)
	return f.seq(q.User, q.To, q.From, q.Limit)
}

func (f *fakeLogAPI) LogEvents(_ context.Context, q mediawiki.LogEventsQuery) iter.Seq2[mediawiki.LogEvent, error] {
	f.leQueries = append(f.leQueries, q)
	return f.seq(q.User, q.Start, q.Stop, q.Limit)
}

func (f *fakeLogAPI) seq(user string, older, newer time.Time, limit int) iter.Seq2[mediawiki.LogEvent, error] {
	return func(yield func(mediawiki.LogEvent, error) bool) {
		if f.err != nil {
			yield(mediawiki.LogEvent{}, f.err)
			return
		}
		n := 0
		for _, ts := range f.history[user] {
			if !newer.IsZero() && ts.After(newer) {
				continue
			}
			if !older.IsZero() && ts.Before(older) {
				continue
			}
			f.yielded++
			if !yield(mediawiki.LogEvent{User: user, Timestamp: ts}, nil) {
				return
			}
			n++
			if limit > 0 && n >= limit {
				return
			}
		}
	}
}

func newTestClassifier(t *testing.T, role Role, api LogAPI) *Classifier {
	t.Helper()
	c, err := NewClassifier(role, api, zerolog.Nop())
	require.NoError(t, err)
	c.loc = time.UTC
	return c
}

func TestCheckUserQuery_InvertsWindow(t *testing.T) {
	api := &fakeLogAPI{}
	q, err := NewLogQuery(KindCheckUser, api)
	require.NoError(t, err)

	start, stop := daysAgo(90), now
	for range q(context.Background(), Request{User: "Alice", Start: start, Stop: stop}) {
	}

	require.Len(t, api.cuQueries, 1)
	got := api.cuQueries[0]
	assert.Equal(t, "Alice", got.User)
	assert.Equal(t, start, got.To, "start belongs in the to slot")
	assert.Equal(t, stop, got.From, "stop belongs in the from slot")
}

func TestCheckUserQuery_OpenWindow(t *testing.T) {
	api := &fakeLogAPI{}
	q, err := NewLogQuery(KindCheckUser, api)
	require.NoError(t, err)

	for range q(context.Background(), Request{User: "Alice", Limit: 3}) {
	}
	require.Len(t, api.cuQueries, 1)
	assert.True(t, api.cuQueries[0].From.IsZero())
	assert.True(t, api.cuQueries[0].To.IsZero())
	assert.Equal(t, 3, api.cuQueries[0].Limit)
}

func TestOversightQuery_PassesWindowThrough(t *testing.T) {
	api := &fakeLogAPI{}
	q, err := NewLogQuery(KindOversight, api)
	require.NoError(t, err)

	start, stop := daysAgo(30), now
	for range q(context.Background(), Request{User: "Bob", Start: start, Stop: stop, Limit: 7}) {
	}

	require.Len(t, api.leQueries, 1)
	got := api.leQueries[0]
	assert.Equal(t, "suppress", got.Type)
	assert.Equal(t, "Bob", got.User)
	assert.Equal(t, []string{"timestamp"}, got.Prop)
	assert.Equal(t, start, got.Start)
	assert.Equal(t, stop, got.Stop)
	assert.Equal(t, 7, got.Limit)
	assert.Empty(t, api.cuQueries)
}

func TestNewLogQuery_UnknownKind(t *testing.T) {
	_, err := NewLogQuery(Kind(42), &fakeLogAPI{})
	assert.Error(t, err)
}

func TestRecentTimestamps(t *testing.T) {
	api := &fakeLogAPI{history: map[string][]time.Time{
		"Alice": {daysAgo(1), daysAgo(5), daysAgo(9), daysAgo(40), daysAgo(100)},
	}}

	for _, role := range DefaultRoles() {
		t.Run(role.Group, func(t *testing.T) {
			c := newTestClassifier(t, role, api)

			stamps, err := c.RecentTimestamps(context.Background(), "Alice", 3)
			require.NoError(t, err)
			assert.Equal(t, []time.Time{daysAgo(1), daysAgo(5), daysAgo(9)}, stamps)
		})
	}
}

func TestRecentTimestamps_ShortHistory(t *testing.T) {
	api := &fakeLogAPI{history: map[string][]time.Time{"Alice": {daysAgo(3), daysAgo(4)}}}
	c := newTestClassifier(t, CheckUser, api)

	stamps, err := c.RecentTimestamps(context.Background(), "Alice", 5)
	require.NoError(t, err)
	assert.Len(t, stamps, 2)

	stamps, err = c.RecentTimestamps(context.Background(), "Nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, stamps)
}

func TestRecentTimestamps_NeverMoreThanN(t *testing.T) {
	var history []time.Time
	for d := 0; d < 50; d++ {
		history = append(history, daysAgo(d))
	}
	// Ignores the limit so the classifier must stop on its own.
	api := &fakeLogAPI{history: map[string][]time.Time{"Alice": history}}
	unbounded := func(ctx context.Context, req Request) iter.Seq2[LogEntry, error] {
		return entries(api.seq(req.User, req.Start, req.Stop, 0))
	}
	c := NewClassifierWithQuery(CheckUser, unbounded, zerolog.Nop())

	for _, n := range []int{1, 5, 49, 50} {
		api.yielded = 0
		stamps, err := c.RecentTimestamps(context.Background(), "Alice", n)
		require.NoError(t, err)
		assert.Len(t, stamps, n)
		assert.Equal(t, n, api.yielded, "sequence must be abandoned once n are collected")
	}
}

func TestRecentTimestamps_NonPositiveN(t *testing.T) {
	api := &fakeLogAPI{history: map[string][]time.Time{"Alice": {daysAgo(1)}}}
	c := newTestClassifier(t, CheckUser, api)

	stamps, err := c.RecentTimestamps(context.Background(), "Alice", 0)
	require.NoError(t, err)
	assert.Empty(t, stamps)
	assert.Empty(t, api.cuQueries)
}

func TestRecentTimestamps_LocalTime(t *testing.T) {
	api := &fakeLogAPI{history: map[string][]time.Time{"Alice": {daysAgo(1)}}}
	c := newTestClassifier(t, CheckUser, api)
	loc := time.FixedZone("UTC+5", 5*3600)
	c.loc = loc

	stamps, err := c.RecentTimestamps(context.Background(), "Alice", 1)
	require.NoError(t, err)
	require.Len(t, stamps, 1)
	assert.Equal(t, loc, stamps[0].Location())
	assert.True(t, stamps[0].Equal(daysAgo(1)))
}

func TestCountActions_HalfOpenWindow(t *testing.T) {
	start, stop := daysAgo(90), now
	history := []time.Time{
		now,                     // at stop: excluded
		now.Add(-time.Second),   // inside
		daysAgo(45),             // inside
		start,                   // at start: included
		start.Add(-time.Second), // before start: excluded
	}
	api := &fakeLogAPI{history: map[string][]time.Time{"Alice": history}}

	for _, role := range DefaultRoles() {
		t.Run(role.Group, func(t *testing.T) {
			c := newTestClassifier(t, role, api)
			n, err := c.CountActions(context.Background(), "Alice", start, stop)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
		})
	}
}

func TestCountActions_NoEntries(t *testing.T) {
	c := newTestClassifier(t, Oversight, &fakeLogAPI{})
	n, err := c.CountActions(context.Background(), "Bob", daysAgo(90), now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCountActions_Error(t *testing.T) {
	boom := perrors.NewAPIError("mediawiki", 500, "boom")
	c := newTestClassifier(t, CheckUser, &fakeLogAPI{err: boom})
	_, err := c.CountActions(context.Background(), "Alice", daysAgo(90), now)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRecentTimestamps_Error(t *testing.T) {
	c := newTestClassifier(t, Oversight, &fakeLogAPI{err: errors.New("connection reset")})
	_, err := c.RecentTimestamps(context.Background(), "Bob", 1)
	assert.ErrorContains(t, err, "connection reset")
}

func TestIsActive(t *testing.T) {
	cutoff := daysAgo(90)

	assert.False(t, IsActive(nil, cutoff), "no actions is inactive")
	assert.False(t, IsActive([]time.Time{}, cutoff))
	assert.True(t, IsActive([]time.Time{cutoff}, cutoff), "boundary is inclusive")
	assert.True(t, IsActive([]time.Time{daysAgo(10)}, cutoff))
	assert.False(t, IsActive([]time.Time{cutoff.Add(-time.Second)}, cutoff))
	assert.True(t, IsActive([]time.Time{daysAgo(1), daysAgo(200)}, cutoff), "only the newest counts")
}

func TestLookupRole(t *testing.T) {
	r, err := LookupRole(" CheckUser ")
	require.NoError(t, err)
	assert.Equal(t, CheckUser, r)

	r, err = LookupRole("suppress")
	require.NoError(t, err)
	assert.Equal(t, Oversight, r)

	_, err = LookupRole("sysop")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestParseRoles(t *testing.T) {
	roles, err := ParseRoles([]string{"oversight", "checkuser", "oversight", ""})
	require.NoError(t, err)
	assert.Equal(t, []Role{Oversight, CheckUser}, roles)

	_, err = ParseRoles(nil)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "checkuser", KindCheckUser.String())
	assert.Equal(t, "oversight", KindOversight.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestRecord_LastAction(t *testing.T) {
	_, ok := Record{User: "Bob"}.LastAction()
	assert.False(t, ok)

	last, ok := Record{User: "Alice", Recent: []time.Time{daysAgo(2), daysAgo(9)}}.LastAction()
	assert.True(t, ok)
	assert.Equal(t, daysAgo(2), last)
}
