package mplex

import "bytes"

// Delimiter terminates every protocol frame.
const Delimiter = "\r\n"

var delimiter = []byte(Delimiter)

// ExtractFrames splits every complete frame off the front of buf. Frames are
// returned without the delimiter. The returned remainder holds the trailing
// partial frame, or is nil when buf ended exactly on a delimiter.
func ExtractFrames(buf []byte) (frames []string, rest []byte) {
	for {
		i := bytes.Index(buf, delimiter)
		if i < 0 {
			break
		}
		frames = append(frames, string(buf[:i]))
		buf = buf[i+len(delimiter):]
	}
	if len(buf) == 0 {
		return frames, nil
	}
	return frames, buf
}
