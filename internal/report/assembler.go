// Package report assembles and renders per-role inactivity reports.
package report

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/p-blackswan/inactivity-report/internal/activity"
	"github.com/p-blackswan/inactivity-report/internal/exemption"
	"github.com/p-blackswan/inactivity-report/internal/mediawiki"
)

// API is the part of the wiki API the assembler needs.
type API interface {
	activity.LogAPI
	AllUsers(ctx context.Context, group string) iter.Seq2[mediawiki.User, error]
}

// Recorder receives one call per classified role holder.
type Recorder interface {
	RecordClassification(role string, active bool)
}

// Options tune a run.
type Options struct {
	// Cutoff is how far back an action must be to count as recent.
	Cutoff time.Duration
	// RecentCount is how many recent timestamps are kept per user.
	RecentCount int
	// Concurrency bounds the holders processed at once.
	Concurrency int
	// Now returns the reference time of the run.
	Now func() time.Time
}

// stage names the step of a role's processing, for logs and errors.
type stage string

const (
	stageFetchHolders  stage = "fetch holders"
	stageFetchActivity stage = "fetch activity"
	stageClassify      stage = "classify"
	stageAccumulate    stage = "accumulate"
)

// Report is the outcome of one run.
type Report struct {
	GeneratedAt time.Time
	Cutoff      time.Time
	CutoffDays  int
	Roles       []RoleReport
}

// RoleReport lists a role's inactive holders, sorted by username.
type RoleReport struct {
	Role     activity.Role
	Holders  int
	Inactive []activity.Record
}

// Assembler drives the classifier over every configured role.
type Assembler struct {
	api        API
	exemptions *exemption.Registry
	opts       Options
	recorder   Recorder
	logger     zerolog.Logger
}

// NewAssembler creates an assembler. Zero options fall back to a 90 day
// cutoff, one recent timestamp, and sequential processing.
func NewAssembler(api API, exemptions *exemption.Registry, opts Options, logger zerolog.Logger) *Assembler {
	if opts.Cutoff <= 0 {
		opts.Cutoff = 90 * 24 * time.Hour
	}
	if opts.RecentCount < 1 {
		opts.RecentCount = 1
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Assembler{
		api:        api,
		exemptions: exemptions,
		opts:       opts,
		logger:     logger.With().Str("component", "report").Logger(),
	}
}

// SetRecorder registers a classification recorder.
func (a *Assembler) SetRecorder(r Recorder) {
	a.recorder = r
}

// Run builds the report for roles. Any failure aborts the whole run, so a
// returned report is always complete.
func (a *Assembler) Run(ctx context.Context, roles []activity.Role) (*Report, error) {
	now := a.opts.Now()
	cutoff := now.Add(-a.opts.Cutoff)
	rep := &Report{
		GeneratedAt: now,
		Cutoff:      cutoff,
		CutoffDays:  int(a.opts.Cutoff / (24 * time.Hour)),
		Roles:       make([]RoleReport, 0, len(roles)),
	}

	for _, role := range roles {
		rr, err := a.runRole(ctx, role, cutoff, now)
		if err != nil {
			return nil, err
		}
		rep.Roles = append(rep.Roles, rr)
	}
	return rep, nil
}

func (a *Assembler) runRole(ctx context.Context, role activity.Role, cutoff, now time.Time) (RoleReport, error) {
	log := a.logger.With().Str("role", role.Group).Logger()
	fail := func(s stage, err error) (RoleReport, error) {
		return RoleReport{}, fmt.Errorf("role %s: %s: %w", role.Group, s, err)
	}

	classifier, err := activity.NewClassifier(role, a.api, log)
	if err != nil {
		return fail(stageFetchHolders, err)
	}

	log.Debug().Str("stage", string(stageFetchHolders)).Msg("enumerating role holders")
	var holders []string
	for u, err := range a.api.AllUsers(ctx, role.Group) {
		if err != nil {
			return fail(stageFetchHolders, err)
		}
		holders = append(holders, u.Name)
	}

	log.Debug().Str("stage", string(stageFetchActivity)).Int("holders", len(holders)).Msg("retrieving actions")
	records := make([]activity.Record, len(holders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, user := range holders {
		g.Go(func() error {
			count, err := classifier.CountActions(gctx, user, cutoff, now)
			if err != nil {
				return err
			}
			recent, err := classifier.RecentTimestamps(gctx, user, a.opts.RecentCount)
			if err != nil {
				return err
			}
			records[i] = activity.Record{User: user, Count: count, Recent: recent}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(stageFetchActivity, err)
	}

	log.Debug().Str("stage", string(stageClassify)).Msg("classifying holders")
	for i := range records {
		rec := &records[i]
		rec.Active = activity.IsActive(rec.Recent, cutoff)

		ev := log.Debug().Str("user", rec.User).Int("timestamps", len(rec.Recent))
		if last, ok := rec.LastAction(); ok {
			ev = ev.Time("last_action", last)
		}
		ev.Bool("active", rec.Active).Msg("classified")

		if a.recorder != nil {
			a.recorder.RecordClassification(role.Group, rec.Active)
		}
	}

	log.Debug().Str("stage", string(stageAccumulate)).Msg("collecting inactive holders")
	inactive := make([]activity.Record, 0)
	for _, rec := range records {
		if rec.Active {
			continue
		}
		rec.Exemption = a.exemptions.Lookup(rec.User)
		inactive = append(inactive, rec)
	}
	sort.Slice(inactive, func(i, j int) bool { return inactive[i].User < inactive[j].User })

	log.Info().
		Int("holders", len(holders)).
		Int("inactive", len(inactive)).
		Msg("role processed")

	return RoleReport{Role: role, Holders: len(holders), Inactive: inactive}, nil
}
