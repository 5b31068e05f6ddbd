package rtcp

import (
	"os"
	"time"

	"github.com/pion/rtcp"

	"github.com/ethan/stretch-rtsp-server/pkg/streamer"
)

// ntpEpochOffset converts a Unix timestamp to the NTP epoch (spec.md
// §4.4: "NTP epoch = unix + 2208988800").
const ntpEpochOffset = 2208988800

// srInterval is the Sender Report cadence in RTP timestamp ticks
// (spec.md §4.4: "5 * 90000 timestamp ticks").
const srInterval = 5 * 90000

// Emitter builds and writes outbound Sender Report + SDES compound
// packets (spec.md §4.4 "Outbound (Sender Report)").
type Emitter struct {
	hostname string
}

// NewEmitter builds an Emitter using the local hostname as the SDES
// CNAME item.
func NewEmitter() *Emitter {
	host, err := os.Hostname()
	if err != nil {
		host = "stretch-rtsp-server"
	}
	return &Emitter{hostname: host}
}

// MaybeSend writes an SR+SDES compound packet to client's RTCP
// transport if now (an RTP timestamp) is at least srInterval past the
// client's last SR.
func (e *Emitter) MaybeSend(client *streamer.Client, ssrc uint32, now uint32) error {
	last := client.LastRTCPTime()
	if last >= 0 && int64(now)-last < srInterval {
		return nil
	}

	wall := time.Now()
	ntp := uint64(wall.Unix()+ntpEpochOffset)<<32 | uint64(uint32(wall.Nanosecond()))

	sr := &rtcp.SenderReport{
		SSRC:        ssrc,
		NTPTime:     ntp,
		RTPTime:     now,
		PacketCount: uint32(client.TotalPackets()),
		OctetCount:  uint32(client.TotalBytes()),
	}

	sdes := &rtcp.SourceDescription{
		Chunks: []rtcp.SourceDescriptionChunk{
			{
				Source: ssrc,
				Items: []rtcp.SourceDescriptionItem{
					{Type: rtcp.SDESCNAME, Text: e.hostname},
				},
			},
		},
	}

	raw, err := rtcp.Marshal([]rtcp.Packet{sr, sdes})
	if err != nil {
		return err
	}
	if err := client.Transport.WriteRTCP(raw); err != nil {
		return err
	}

	client.SetLastRTCPTime(int64(now))
	return nil
}
