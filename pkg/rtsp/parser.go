package rtsp

import (
	"bufio"
	"strconv"
	"strings"
)

// maxRequestLine bounds a single header line; spec.md §7's
// ERROR_FIELD_TOO_LONG/REQUEST_URI_TOO_LARGE guard against runaway
// allocations from a misbehaving or hostile client.
const maxRequestLine = 4096

func canonicalHeader(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// tokenize splits s on runs of ' ', ';', '\r', '\n' — the separator rule
// spec.md §4.1 specifies for the request tokenizer — dropping empty
// tokens produced by adjacent separators.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', ';', '\r', '\n':
			return true
		}
		return false
	})
}

// ParseRequest parses one RTSP request occupying buf, terminated by the
// blank line the caller has already located (spec.md §4.1: "a contiguous
// byte buffer terminated by \r\n\r\n"). Any violation returns a Status
// the caller replies with verbatim, CSeq best-effort echoed: once the
// request line has been read, the returned Request is non-nil even on
// failure and carries whatever fields were parsed before the violation.
func ParseRequest(buf []byte) (*Request, Status) {
	if len(buf) > 16*1024 {
		return nil, StatusServerBufferOverflow
	}

	scanner := bufio.NewScanner(strings.NewReader(string(buf)))
	scanner.Buffer(make([]byte, maxRequestLine), maxRequestLine)

	if !scanner.Scan() {
		if scanner.Err() == bufio.ErrTooLong {
			return nil, StatusRequestURITooLarge
		}
		return nil, StatusBadRequest
	}
	requestLine := strings.TrimRight(scanner.Text(), "\r")
	parts := tokenize(requestLine)
	if len(parts) < 3 {
		return nil, StatusBadRequest
	}

	req := &Request{
		Method:  Method(strings.ToUpper(parts[0])),
		URI:     parts[1],
		Version: parts[2],
		Headers: make(map[string]string),
	}

	if req.Version != "RTSP/1.0" {
		return req, StatusRTSPVersionNotSupported
	}
	if !isRecognizedMethod(req.Method) {
		return req, StatusMethodNotAllowed
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if len(line) > maxRequestLine {
			return req, StatusErrorFieldTooLong
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = canonicalHeader(key)
		value = strings.TrimSpace(value)
		req.Headers[key] = value

		switch key {
		case "CSEQ":
			n, err := strconv.Atoi(value)
			if err != nil {
				return req, StatusErrorMissingFieldArg
			}
			req.CSeq = n
		case "ACCEPT":
			req.Accept = value
		case "TRANSPORT":
			req.Transport = value
		case "SESSION":
			if len(value) > 8 {
				return req, StatusErrorSessionIDTooLong
			}
			req.Session = value
		}
	}
	if scanner.Err() == bufio.ErrTooLong {
		return req, StatusErrorFieldTooLong
	}

	if _, ok := req.Headers["CSEQ"]; !ok {
		return req, StatusErrorMissingFieldArg
	}

	return req, StatusOK
}

func isRecognizedMethod(m Method) bool {
	switch m {
	case MethodOptions, MethodDescribe, MethodSetup, MethodPlay,
		MethodGetParameter, MethodTeardown, MethodPause:
		return true
	}
	return false
}

// ConnState is the per-connection RTSP state machine (spec.md §4.1).
type ConnState int

const (
	StateInit ConnState = iota
	StateReady
	StatePlaying
)

func (s ConnState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateReady:
		return "READY"
	case StatePlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// Validate checks whether method is legal in the current connection
// state and returns the ConnState transition to apply after a successful
// reply is sent. TEARDOWN (and PAUSE, aliased to it) always transitions
// to INIT from any state.
func Validate(method Method, state ConnState) (next ConnState, err Status) {
	switch method {
	case MethodOptions, MethodDescribe, MethodGetParameter:
		return state, StatusOK
	case MethodSetup:
		return StateReady, StatusOK
	case MethodPlay:
		if state == StateInit {
			return state, StatusMethodNotValidInThisState
		}
		return StatePlaying, StatusOK
	case MethodTeardown, MethodPause:
		return StateInit, StatusOK
	default:
		return state, StatusMethodNotAllowed
	}
}
