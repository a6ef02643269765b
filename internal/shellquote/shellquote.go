// Package shellquote reconstructs a shell command string from an argv
// list, quoting only the arguments that need it. Shared by the client
// state machine's get_app_name operation and the autostart codec's Exec
// reconstruction, both of which require the exact same byte-for-byte
// quoting behavior.
package shellquote

import "strings"

// safe matches bytes that never need quoting: [A-Za-z0-9_=:./-].
func safe(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '_' || b == '=' || b == ':' || b == '.' || b == '/' || b == '-':
		return true
	default:
		return false
	}
}

// Quote single-quotes arg if it contains any byte outside the safe set,
// embedding literal single quotes as '\''.
func Quote(arg string) string {
	for i := 0; i < len(arg); i++ {
		if !safe(arg[i]) {
			return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
		}
	}
	return arg
}

// Join reconstructs a full command string from an argv list, quoting each
// element independently and joining with single spaces.
func Join(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}
