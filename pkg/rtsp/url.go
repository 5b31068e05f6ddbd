package rtsp

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var trackSuffixRE = regexp.MustCompile(`/track\d+$`)

// StreamName extracts the stream name from an RTSP request URI
// (spec.md §4.1): the path segment after rtsp://host[:port]/<stream>,
// with any trailing /trackN suffix and trailing slash stripped.
func StreamName(rawURL string) (string, Status) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", StatusBadRequest
	}

	path := u.Path
	path = trackSuffixRE.ReplaceAllString(path, "")
	path = strings.TrimSuffix(path, "/")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		return "", StatusBadRequest
	}
	return path, StatusOK
}

// StreamID derives the numeric stream identifier from a channel/stream
// pair: channel_num*10 + stream_num, stream_num in [0,3] (spec.md §3).
func StreamID(channelNum, streamNum int) uint32 {
	return uint32(channelNum*10 + streamNum)
}

// ParseStreamID reports whether name is the decimal textual form of a
// stream id (spec.md §3: "A stream name ... may be a decimal integer
// (parsed to that same id) or an arbitrary file path").
func ParseStreamID(name string) (uint32, bool) {
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
