package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errNotInteractive is returned when confirmation is needed but stdin is not a terminal.
var errNotInteractive = errors.New("confirmation required: stdin is not a terminal (use --yes)")

// isTerminalFunc reports whether the command input is an interactive terminal.
// It is a variable so tests can replace it.
var isTerminalFunc = func(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// confirm asks a yes/no question on the command streams. Only "y" and "yes" accept.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	if !isTerminalFunc(cmd) {
		return false, errNotInteractive
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", question)

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
