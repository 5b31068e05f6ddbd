package rtsp

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/pion/sdp/v3"

	"github.com/ethan/stretch-rtsp-server/pkg/mediatype"
	"github.com/ethan/stretch-rtsp-server/pkg/rtspid"
)

// dateHeader formats the current time as spec.md §4.2 requires:
// "%a, %d %b %Y %H:%M:%S GMT" in UTC.
func dateHeader(now time.Time) string {
	return now.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}

// reply assembles the common status-line/CSeq/Date preamble and appends
// extraHeaders and an optional body, terminating the header block with
// the blank line spec.md §4.2 requires.
func reply(status Status, cseq int, extraHeaders []string, body []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RTSP/1.0 %d %s\r\n", status.Code, status.Reason)
	fmt.Fprintf(&b, "CSeq: %d\r\n", cseq)
	fmt.Fprintf(&b, "Date: %s\r\n", dateHeader(time.Now()))
	for _, h := range extraHeaders {
		b.WriteString(h)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	if len(body) > 0 {
		b.Write(body)
	}
	return b.String()
}

// BuildError renders a bare error reply: status line, CSeq, Date, no body.
func BuildError(status Status, cseq int) string {
	return reply(status, cseq, nil, nil)
}

// BuildOptions renders the OPTIONS reply (spec.md §4.2).
func BuildOptions(cseq int) string {
	return reply(StatusOK, cseq, []string{
		"Public: OPTIONS, DESCRIBE, SETUP, PLAY, GET_PARAMETER, TEARDOWN, PAUSE",
	}, nil)
}

// DescribeInfo carries everything BuildDescribe needs to synthesize the
// SDP body of spec.md §4.2.
type DescribeInfo struct {
	Desc     mediatype.StreamDesc
	SPS      []byte // H.264 only
	PPS      []byte // H.264 only
	ServerIP string
	Origin   uint64 // random session id for the SDP o= line
}

// BuildDescribe renders the DESCRIBE reply: an SDP body whose
// Content-Length is computed after the body itself is built (the
// "two-pass write" of spec.md §4.2).
func BuildDescribe(cseq int, info DescribeInfo) (string, Status) {
	if info.Desc.EncoderType == mediatype.EncoderH264 && (len(info.SPS) < 2 || len(info.PPS) == 0) {
		return "", StatusErrorMissingSPS
	}

	body, err := buildSDP(info)
	if err != StatusOK {
		return "", err
	}

	headers := []string{
		"Content-Type: application/sdp",
		fmt.Sprintf("Content-Length: %d", len(body)),
	}
	return reply(StatusOK, cseq, headers, body), StatusOK
}

func buildSDP(info DescribeInfo) ([]byte, Status) {
	pt := info.Desc.EncoderType.PayloadType()

	sess := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      info.Origin,
			SessionVersion: 1,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: info.ServerIP,
		},
		SessionName: sdp.SessionName(fmt.Sprintf("%s Video, streamed by the Stretch Media Server", info.Desc.EncoderType)),
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
	}

	media := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   "video",
			Port:    sdp.RangedPort{Value: 0},
			Protos:  []string{"RTP", "AVP"},
			Formats: []string{fmt.Sprintf("%d", pt)},
		},
		Bandwidth: []sdp.Bandwidth{
			{Type: "AS", Bandwidth: uint64(info.Desc.Bitrate)},
		},
	}

	switch info.Desc.EncoderType {
	case mediatype.EncoderH264:
		if len(info.SPS) < 4 {
			return nil, StatusErrorMissingSPS
		}
		profileLevelID := fmt.Sprintf("%02x%02x%02x", info.SPS[1], info.SPS[2], info.SPS[3])
		fmtp := fmt.Sprintf(
			"packetization-mode=1;profile-level-id=%s;sprop-parameter-sets=%s,%s",
			profileLevelID,
			base64.StdEncoding.EncodeToString(info.SPS),
			base64.StdEncoding.EncodeToString(info.PPS),
		)
		media.Attributes = []sdp.Attribute{
			sdp.NewAttribute("rtpmap", fmt.Sprintf("%d H264/90000", pt)),
			sdp.NewAttribute("fmtp", fmt.Sprintf("%d %s", pt, fmtp)),
		}
	case mediatype.EncoderMJPEG:
		media.Attributes = []sdp.Attribute{
			sdp.NewAttribute("rtpmap", fmt.Sprintf("%d JPEG/90000", pt)),
		}
	case mediatype.EncoderMPEG4:
		media.Attributes = []sdp.Attribute{
			sdp.NewAttribute("rtpmap", fmt.Sprintf("%d MP4V-ES/90000", pt)),
		}
	default:
		return nil, StatusErrorUnsupportedEncoder
	}

	sess.MediaDescriptions = []*sdp.MediaDescription{media}

	raw, err := sess.Marshal()
	if err != nil {
		return nil, StatusInternalServerError
	}
	return raw, StatusOK
}

// SetupInfo carries the fields BuildSetup needs to render the Transport
// echo of spec.md §4.2.
type SetupInfo struct {
	Session       rtspid.SessionID
	Transport     Transport
	ClientIP      string
	ServerIP      string
	ServerPortLo  int
	ServerPortHi  int
}

// BuildSetup renders the SETUP reply.
func BuildSetup(cseq int, info SetupInfo) string {
	var transport string
	if info.Transport.TCP {
		transport = fmt.Sprintf(
			"RTP/AVP/TCP;unicast;destination=%s;source=%s;interleaved=%d-%d",
			info.ClientIP, info.ServerIP, info.Transport.InterleavedLo, info.Transport.InterleavedHi,
		)
	} else {
		transport = fmt.Sprintf(
			"RTP/AVP;unicast;destination=%s;source=%s;client_port=%d-%d;server_port=%d-%d",
			info.ClientIP, info.ServerIP,
			info.Transport.ClientPortLo, info.Transport.ClientPortHi,
			info.ServerPortLo, info.ServerPortHi,
		)
	}

	return reply(StatusOK, cseq, []string{
		"Transport: " + transport,
		"Session: " + info.Session.String(),
	}, nil)
}

// BuildPlay renders the PLAY reply.
func BuildPlay(cseq int, session rtspid.SessionID, url string, seq uint16, rtptime uint32) string {
	return reply(StatusOK, cseq, []string{
		"Session: " + session.String(),
		"Range: npt=0.000-",
		fmt.Sprintf("RTP-Info: url=%s/track1;seq=%d;rtptime=%d", url, seq, rtptime),
	}, nil)
}

// BuildGetParameter renders the GET_PARAMETER reply.
func BuildGetParameter(cseq int, session rtspid.SessionID) string {
	return reply(StatusOK, cseq, []string{"Session: " + session.String()}, nil)
}

// BuildTeardown renders the TEARDOWN reply.
func BuildTeardown(cseq int) string {
	return reply(StatusOK, cseq, nil, nil)
}
