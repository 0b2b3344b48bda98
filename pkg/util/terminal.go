package util

import (
	"os"

	"golang.org/x/crypto/ssh/terminal"
)

// InTerminal determines whether output is going to a terminal that should get colors.
// Setting NO_COLOR to any value turns colors off.
func InTerminal() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return terminal.IsTerminal(int(os.Stdout.Fd()))
}
