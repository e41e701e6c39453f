package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/p-blackswan/inactivity-report/internal/activity"
	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
	"github.com/p-blackswan/inactivity-report/internal/exemption"
	"github.com/p-blackswan/inactivity-report/internal/health"
	"github.com/p-blackswan/inactivity-report/internal/mediawiki"
	"github.com/p-blackswan/inactivity-report/internal/metrics"
)

// checkUserExtension is the extension providing list=checkuserlog.
const checkUserExtension = "CheckUser"

func (a *app) checkCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the wiki API and exemption file without running a report",
		Long: `Runs the preflight checks a report run starts with, plus a parse of the
exemption file, and prints one line per check.

Checks:
- api: the API answers a siteinfo query
- checkuser-extension: CheckUser is installed (only when reporting on checkuser)
- exemptions: the exemption file loads

Exit code is 0 when no check is down.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roles, err := a.cfg.RoleList()
			if err != nil {
				return err
			}
			api, err := a.deps.NewAPI(a.cfg, a.logger, metrics.New())
			if err != nil {
				return err
			}

			checker := a.newChecker(api, roles)
			checker.Register("exemptions", func(context.Context) (health.Status, string) {
				reg, err := exemption.Load(a.cfg.ExemptionsPath, a.logger)
				if err != nil {
					return health.StatusDown, err.Error()
				}
				return health.StatusOK, fmt.Sprintf("%d users in %d categories", reg.Len(), len(reg.Categories()))
			})

			results := checker.RunAll(cmd.Context())
			if !quiet {
				printResults(cmd, results)
			}
			return requireReady(results)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode - exit code only")

	return cmd
}

// siteInfoOnce shares one siteinfo request between the checks that need it.
type siteInfoOnce struct {
	api  WikiAPI
	once sync.Once
	info *mediawiki.SiteInfo
	err  error
}

func (s *siteInfoOnce) get(ctx context.Context) (*mediawiki.SiteInfo, error) {
	s.once.Do(func() {
		s.info, s.err = s.api.SiteInfo(ctx)
	})
	return s.info, s.err
}

// newChecker registers the checks that gate a report run.
func (a *app) newChecker(api WikiAPI, roles []activity.Role) *health.Checker {
	checker := health.NewChecker(a.logger)
	checker.SetTimeout(a.cfg.HTTPTimeout)
	site := &siteInfoOnce{api: api}

	checker.Register("api", func(ctx context.Context) (health.Status, string) {
		info, err := site.get(ctx)
		if err != nil {
			return health.StatusDown, err.Error()
		}
		return health.StatusOK, fmt.Sprintf("%s (%s)", info.SiteName, info.Generator)
	})

	for _, r := range roles {
		if r.Kind != activity.KindCheckUser {
			continue
		}
		checker.Register("checkuser-extension", func(ctx context.Context) (health.Status, string) {
			info, err := site.get(ctx)
			if err != nil {
				return health.StatusDown, err.Error()
			}
			if !info.HasExtension(checkUserExtension) {
				return health.StatusDegraded, "CheckUser extension not listed by siteinfo"
			}
			return health.StatusOK, ""
		})
		break
	}

	return checker
}

func requireReady(results []health.Result) error {
	if health.Ready(results) {
		return nil
	}
	var down []string
	for _, r := range results {
		if r.Status == health.StatusDown {
			down = append(down, r.Name)
		}
	}
	return fmt.Errorf("%w: preflight failed: %s", perrors.ErrUnavailable, strings.Join(down, ", "))
}

func printResults(cmd *cobra.Command, results []health.Result) {
	out := cmd.OutOrStdout()
	paint := func(attr color.Attribute, s string) string {
		c := color.New(attr)
		if !isTerminal(out) {
			c.DisableColor()
		}
		return c.Sprint(s)
	}
	fmt.Fprintln(out, "Check                Status    Detail")
	fmt.Fprintln(out, "─────────────────────────────────────")
	for _, r := range results {
		status := fmt.Sprintf("%-9s", r.Status)
		switch r.Status {
		case health.StatusOK:
			status = paint(color.FgGreen, status)
		case health.StatusDegraded:
			status = paint(color.FgYellow, status)
		default:
			status = paint(color.FgRed, status)
		}
		fmt.Fprintln(out, strings.TrimRight(fmt.Sprintf("%-20s %s %s", r.Name, status, r.Detail), " "))
	}
}
