// Package cli implements the inactivity-report command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/p-blackswan/inactivity-report/internal/config"
	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
	"github.com/p-blackswan/inactivity-report/internal/exemption"
	"github.com/p-blackswan/inactivity-report/internal/mediawiki"
	"github.com/p-blackswan/inactivity-report/internal/metrics"
	"github.com/p-blackswan/inactivity-report/internal/report"
	"github.com/p-blackswan/inactivity-report/internal/runid"
	"github.com/p-blackswan/inactivity-report/internal/version"
)

// WikiAPI is the wiki session a run reads from.
type WikiAPI interface {
	report.API
	Login(ctx context.Context, creds mediawiki.Credentials) error
	SiteInfo(ctx context.Context) (*mediawiki.SiteInfo, error)
}

// Deps are the collaborators the commands run against.
type Deps struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Logger zerolog.Logger
	NewAPI func(cfg *config.Config, logger zerolog.Logger, obs mediawiki.Observer) (WikiAPI, error)
	Prompt func(in io.Reader, out io.Writer, creds mediawiki.Credentials) (mediawiki.Credentials, error)
	Now    func() time.Time
}

// DefaultDeps wires the real wiki client and the process's standard streams.
func DefaultDeps(logger zerolog.Logger) Deps {
	return Deps{
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		Logger: logger,
		NewAPI: NewMediaWikiAPI,
		Prompt: PromptCredentials,
		Now:    time.Now,
	}
}

// NewMediaWikiAPI creates a wiki client from cfg.
func NewMediaWikiAPI(cfg *config.Config, logger zerolog.Logger, obs mediawiki.Observer) (WikiAPI, error) {
	c, err := mediawiki.NewClient(cfg.APIRoot, logger,
		mediawiki.WithUserAgent(cfg.UserAgent),
		mediawiki.WithRateLimit(cfg.RequestsPerSecond, cfg.RequestBurst),
		mediawiki.WithTimeout(cfg.HTTPTimeout),
		mediawiki.WithObserver(obs),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type app struct {
	cfg    *config.Config
	deps   Deps
	debug  bool
	logger zerolog.Logger
}

// RootCmd returns the report command with its subcommands. cfg carries the
// environment defaults and is updated in place by flags.
func RootCmd(cfg *config.Config, deps Deps) *cobra.Command {
	a := &app{cfg: cfg, deps: deps, logger: deps.Logger}

	cmd := &cobra.Command{
		Use:     "inactivity-report",
		Short:   "Report inactive CheckUsers and Oversighters",
		Version: version.String(),
		Long: `Lists the holders of each functionary role who have no logged action
within the cutoff, with the time of their last action and any exemption
recorded for them.

Credentials are read from AUSC_USERNAME and AUSC_PASSWORD, or prompted for.

Examples:
  inactivity-report                       # plain tables, 90 day cutoff
  inactivity-report --mw-table --cutoff 60
  inactivity-report check                 # preflight only`,
		Args:              noArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runReport,
	}
	cmd.SetIn(deps.In)
	cmd.SetOut(deps.Out)
	cmd.SetErr(deps.Err)
	cmd.SetFlagErrorFunc(usageError)

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&a.debug, "debug", "d", false, "Enable debug logging")
	pf.StringVar(&cfg.APIRoot, "api-root", cfg.APIRoot, "Wiki API endpoint; https:// is assumed")
	pf.StringVar(&cfg.ExemptionsPath, "exemptions", cfg.ExemptionsPath, "Exemption file")
	pf.StringVar(&cfg.Roles, "roles", cfg.Roles, "Comma-separated roles to report on")

	f := cmd.Flags()
	f.BoolVar(&cfg.MWTable, "mw-table", cfg.MWTable, "Print MediaWiki tables instead of plain text")
	f.Var(newDaysValue(&cfg.CutoffDays), "cutoff", "Days without a logged action before a holder is inactive")
	f.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Role holders queried at once")
	f.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write run metrics to this textfile")
	f.StringVar(&cfg.PushgatewayURL, "pushgateway", cfg.PushgatewayURL, "Push run metrics to this Pushgateway")
	f.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip the API checks before logging in")

	cmd.AddCommand(a.checkCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level := zerolog.InfoLevel
	if a.debug {
		level = zerolog.DebugLevel
	} else if lvl, err := zerolog.ParseLevel(a.cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		level = lvl
	}
	ctx, id := runid.New(cmd.Context())
	cmd.SetContext(ctx)
	a.logger = a.deps.Logger.Level(level).With().Str("run_id", id).Logger()
	return a.cfg.Validate()
}

func (a *app) runReport(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()
	started := a.deps.Now()
	m := metrics.New()
	defer func() {
		if err != nil {
			m.RecordError("report", perrors.Kind(err))
			a.logger.Error().Err(err).Msg("report failed")
		}
		m.FinishRun(started, a.deps.Now())
		a.exportMetrics(ctx, m)
	}()

	roles, err := a.cfg.RoleList()
	if err != nil {
		return err
	}
	format := report.FormatPlain
	if a.cfg.MWTable {
		format = report.FormatMediaWiki
	}

	a.logger.Info().
		Str("api_root", a.cfg.APIRoot).
		Int("cutoff_days", a.cfg.CutoffDays).
		Int("roles", len(roles)).
		Msg("starting inactivity report")

	exemptions, err := exemption.Load(a.cfg.ExemptionsPath, a.logger)
	if err != nil {
		return err
	}

	api, err := a.deps.NewAPI(a.cfg, a.logger, m)
	if err != nil {
		return err
	}

	if !a.cfg.SkipPreflight {
		checker := a.newChecker(api, roles)
		if err := requireReady(checker.RunAll(ctx)); err != nil {
			return err
		}
	}

	creds := mediawiki.Credentials{Username: a.cfg.Username, Password: a.cfg.Password}
	if !a.cfg.HasCredentials() {
		creds, err = a.deps.Prompt(a.deps.In, a.deps.Err, creds)
		if err != nil {
			return err
		}
	}
	if err := api.Login(ctx, creds); err != nil {
		return err
	}

	asm := report.NewAssembler(api, exemptions, report.Options{
		Cutoff:      a.cfg.Cutoff(),
		RecentCount: a.cfg.RecentCount,
		Concurrency: a.cfg.Concurrency,
		Now:         a.deps.Now,
	}, a.logger)
	asm.SetRecorder(m)

	rep, err := asm.Run(ctx, roles)
	if err != nil {
		return err
	}
	return report.Render(a.deps.Out, rep, format)
}

// exportMetrics writes the run's metrics wherever configured. Failures are
// logged and never change the run's outcome.
func (a *app) exportMetrics(ctx context.Context, m *metrics.Metrics) {
	if !a.cfg.MetricsEnabled() {
		return
	}
	if a.cfg.MetricsFile != "" {
		if err := m.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.logger.Warn().Err(err).Str("path", a.cfg.MetricsFile).Msg("metrics export failed")
		}
	}
	if a.cfg.PushgatewayURL != "" {
		if err := m.Push(ctx, a.cfg.PushgatewayURL); err != nil {
			a.logger.Warn().Err(err).Str("url", a.cfg.PushgatewayURL).Msg("metrics push failed")
		}
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  noArgs,
		// Runs without validating the environment.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
