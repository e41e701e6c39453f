package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
	"github.com/p-blackswan/inactivity-report/internal/mediawiki"
)

// PromptCredentials fills in whichever of username and password is missing
// by asking on out and reading from in. The password is read without echo
// when in is a terminal.
func PromptCredentials(in io.Reader, out io.Writer, creds mediawiki.Credentials) (mediawiki.Credentials, error) {
	r := bufio.NewReader(in)

	if creds.Username == "" {
		fmt.Fprint(out, "Username: ")
		line, err := readLine(r)
		if err != nil {
			return creds, fmt.Errorf("%w: reading username: %w", perrors.ErrAuthFailure, err)
		}
		creds.Username = strings.TrimSpace(line)
	}

	if creds.Password == "" {
		fmt.Fprint(out, "Password: ")
		var (
			pw  string
			err error
		)
		if isTerminal(in) {
			var b []byte
			b, err = term.ReadPassword(int(in.(*os.File).Fd()))
			pw = string(b)
			fmt.Fprintln(out) // newline after hidden input
		} else {
			pw, err = readLine(r)
		}
		if err != nil {
			return creds, fmt.Errorf("%w: reading password: %w", perrors.ErrAuthFailure, err)
		}
		creds.Password = pw
	}

	if creds.Username == "" || creds.Password == "" {
		return creds, fmt.Errorf("%w: username and password are required", perrors.ErrAuthFailure)
	}
	return creds, nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readLine returns one line without its terminator. A final line without a
// newline is accepted.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
