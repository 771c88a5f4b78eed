package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// pcapngMagic is the block type of a pcapng section header.
const pcapngMagic = 0x0A0D0D0A

type packetReader interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

func openCapture(r io.Reader) (packetReader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}
	if binary.LittleEndian.Uint32(head) == pcapngMagic {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(br)
}

// ReplayPCAP decodes every UDP payload sent to port in a pcap or pcapng
// capture and passes it to h, in capture order. Port 0 accepts every UDP
// packet. Undecodable payloads are counted and skipped.
func ReplayPCAP(ctx context.Context, r io.Reader, port int, h Handler, stats Stats) error {
	if stats == nil {
		stats = noopStats{}
	}
	src, err := openCapture(r)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}

	l := &UDPListener{handler: h, stats: stats}
	linkType := src.LinkType()
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			log.Printf("PCAP replay stopping due to context cancellation (replayed %d datagrams)", count)
			return err
		}
		data, _, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			log.Printf("PCAP replay complete: %d datagrams replayed", count)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read packet: %w", err)
		}

		packet := gopacket.NewPacket(data, linkType, gopacket.NoCopy)
		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		if port != 0 && int(udp.DstPort) != port {
			continue
		}
		count++
		if err := l.handleDatagram(ctx, udp.Payload); err != nil {
			log.Printf("PCAP datagram %d: %v", count, err)
		}
	}
}
