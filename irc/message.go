package irc

import "strings"

// SplitBefore returns the part of *s before the first del and leaves the
// part after it in *s. When del does not occur the whole string is returned
// and *s becomes empty.
func SplitBefore(s *string, del byte) string {
	i := strings.IndexByte(*s, del)
	if i < 0 {
		head := *s
		*s = ""
		return head
	}
	head := (*s)[:i]
	*s = (*s)[i+1:]
	return head
}

// StripCRLF removes any trailing carriage returns and line feeds.
func StripCRLF(line string) string {
	return strings.TrimRight(line, "\r\n")
}

// ParseFrame splits a raw frame into its command keyword and the rest of
// the line. Further decomposition of rest is left to each command.
func ParseFrame(line string) (command, rest string) {
	rest = StripCRLF(line)
	command = SplitBefore(&rest, ' ')
	return command, rest
}

// trailing strips the leading colon that marks a trailing parameter.
func trailing(s string) string {
	return strings.TrimPrefix(s, ":")
}

func isChannelName(name string) bool {
	return name != "" && (name[0] == '#' || name[0] == '&')
}
