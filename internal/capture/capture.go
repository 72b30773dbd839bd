// Package capture replays Art-Net traffic from pcap files and records session
// traffic into them.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"artnetd/internal/artnet/packet"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Snaplen is written into recorded file headers.
const Snaplen = 65536

// Record is one Art-Net packet read from a capture.
type Record struct {
	Timestamp   time.Time
	Source      netip.AddrPort
	Destination netip.AddrPort
	Packet      packet.Packet
}

// Stats counts what Replay read.
type Stats struct {
	Packets   int // every packet in the file
	Datagrams int // UDP datagrams to or from the port
	Invalid   int // datagrams that did not decode as Art-Net
}

// Replay decodes every UDP datagram to or from port and calls fn with the
// Art-Net packets in capture order. Datagrams that do not decode are counted
// and skipped. An error from fn stops the replay.
func Replay(ctx context.Context, r io.Reader, port uint16, fn func(Record) error) (Stats, error) {
	var stats Stats

	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return stats, fmt.Errorf("failed to read pcap header: %w", err)
	}
	src := gopacket.NewPacketSource(pr, pr.LinkType())

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		p, err := src.NextPacket()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++

		udp, ok := p.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || (uint16(udp.DstPort) != port && uint16(udp.SrcPort) != port) {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}
		stats.Datagrams++

		ap, err := packet.Unmarshal(udp.Payload)
		if err != nil {
			stats.Invalid++
			continue
		}

		rec := Record{Timestamp: p.Metadata().Timestamp, Packet: ap}
		if ip, ok := p.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
			rec.Source = addrPort(ip.SrcIP, uint16(udp.SrcPort))
			rec.Destination = addrPort(ip.DstIP, uint16(udp.DstPort))
		}
		if err := fn(rec); err != nil {
			return stats, err
		}
	}
}

func addrPort(ip net.IP, port uint16) netip.AddrPort {
	a, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(a.Unmap(), port)
}

var (
	srcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

// Recorder writes datagrams as Ethernet/IPv4/UDP frames in pcap format. It
// is safe for concurrent use.
type Recorder struct {
	mu sync.Mutex
	w  *pcapgo.Writer
}

// NewRecorder writes the pcap file header to w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(Snaplen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &Recorder{w: pw}, nil
}

// Record appends one datagram. Non-IPv4 addresses are written as 0.0.0.0.
func (r *Recorder) Record(src, dst netip.AddrPort, payload []byte, ts time.Time) error {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    ipv4(src.Addr()),
		DstIP:    ipv4(dst.Addr()),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(src.Port()),
		DstPort: layers.UDPPort(dst.Port()),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("failed to serialize datagram: %w", err)
	}

	data := buf.Bytes()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}, data)
}

func ipv4(a netip.Addr) net.IP {
	a = a.Unmap()
	if !a.Is4() {
		return net.IPv4zero.To4()
	}
	b := a.As4()
	return net.IP(b[:])
}
