package mplex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFrames(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		frames []string
		rest   string
	}{
		{"empty", "", nil, ""},
		{"partial", "NICK al", nil, "NICK al"},
		{"single", "NICK alice\r\n", []string{"NICK alice"}, ""},
		{"multiple", "PASS abc\r\nNICK alice\r\nUSER a host\r\n", []string{"PASS abc", "NICK alice", "USER a host"}, ""},
		{"trailing partial", "PASS abc\r\nNICK al", []string{"PASS abc"}, "NICK al"},
		{"empty frame", "\r\n\r\nPING x\r\n", []string{"", "", "PING x"}, ""},
		{"bare newline is not a delimiter", "NICK a\nUSER b\r\n", []string{"NICK a\nUSER b"}, ""},
		{"split delimiter", "NICK a\r", nil, "NICK a\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, rest := ExtractFrames([]byte(tt.in))
			assert.Equal(t, tt.frames, frames)
			assert.Equal(t, tt.rest, string(rest))
			if tt.rest == "" {
				assert.Nil(t, rest)
			}
		})
	}
}

func TestExtractFramesAcrossReads(t *testing.T) {
	var buf []byte
	var got []string
	for _, chunk := range []string{"PA", "SS abc\r", "\nNICK alice\r\nUS", "ER a host", "\r\n"} {
		frames, rest := ExtractFrames(append(buf, chunk...))
		got = append(got, frames...)
		buf = rest
	}
	assert.Equal(t, []string{"PASS abc", "NICK alice", "USER a host"}, got)
	assert.Empty(t, buf)
}
