package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
)

// daysValue is a pflag.Value accepting a positive whole number of days.
type daysValue struct {
	days *int
}

var _ pflag.Value = (*daysValue)(nil)

func newDaysValue(p *int) *daysValue {
	return &daysValue{days: p}
}

func (d *daysValue) String() string {
	if d.days == nil {
		return "0"
	}
	return strconv.Itoa(*d.days)
}

func (d *daysValue) Set(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return perrors.InvalidInput("%q is not a whole number of days", s)
	}
	if n <= 0 {
		return perrors.InvalidInput("cutoff must be a positive number of days, got %d", n)
	}
	*d.days = n
	return nil
}

func (d *daysValue) Type() string {
	return "days"
}

// usageError marks flag parsing failures as malformed arguments.
func usageError(_ *cobra.Command, err error) error {
	if errors.Is(err, perrors.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %w", perrors.ErrInvalidInput, err)
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return perrors.InvalidInput("unexpected arguments %q", args)
	}
	return nil
}
