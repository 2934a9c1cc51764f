package model

import (
	"strconv"
	"strings"
)

// Command is one external process invocation: an executable and its
// ordered arguments. Commands are run without a shell, so arguments are
// passed verbatim.
type Command struct {
	// Exe is the executable name, resolved through PATH.
	Exe string `json:"exe"`

	// Args are the arguments after the executable name.
	Args []string `json:"args"`
}

// String renders the command the way an operator would type it.
// Arguments containing whitespace or quotes are quoted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Exe))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"'\\") {
		return strconv.Quote(s)
	}
	return s
}
