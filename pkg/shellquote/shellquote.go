// Package shellquote constructs shell-pasteable command strings for logging.
package shellquote

import (
	"strings"
)

// Characters safe to leave unquoted in bash/zsh.
const safe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_@%+=:,./-"

// escape returns a bash/zsh-safe argument, double-quoting only when needed.
// Inside double quotes these must be escaped: \ " $ `.
func escape(s string) string {
	if s == "" {
		return `""`
	}

	needsQuotes := false

	for _, r := range s {
		if !strings.ContainsRune(safe, r) {
			needsQuotes = true

			break
		}
	}

	if !needsQuotes {
		return s
	}

	var b strings.Builder
	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '\\', '"', '$', '`':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('"')

	return b.String()
}

// Join constructs a shell-pasteable command line from bin and args.
// Display only; exec.Command receives the raw argument list.
func Join(bin string, args []string) string {
	var cmdLine strings.Builder

	cmdLine.WriteString(escape(bin))

	for _, arg := range args {
		cmdLine.WriteByte(' ')
		cmdLine.WriteString(escape(arg))
	}

	return cmdLine.String()
}
