// Package iptunnel decodes the IP/UDP tunnel embedded-data bearer (C7):
// an IPv4 header carried inside a data-PDU payload, recursing into ICMP
// quotes and dispatching UDP datagrams by well-known port to the
// protocol that owns that port. Grounded on this module's dmrd.go-style
// bit-exact header field extraction (fixed-offset byte/bit reads with
// explicit bounds checks) generalized from a DMR homebrew-protocol
// packet to a standard IPv4/UDP header.
package iptunnel

import (
	"encoding/binary"
	"fmt"
)

// Proto names the well-known application a UDP port pair maps to.
type Proto int

const (
	ProtoUnknown Proto = iota
	ProtoCellocator
	ProtoLRRP
	ProtoXCMP
	ProtoARS
	ProtoTMSMotorola
	ProtoTelemetry
	ProtoOTAP
	ProtoBattMan
	ProtoJTS
	ProtoTRBOnetSCADA
	ProtoVTXTMS
	ProtoETSITMS
	ProtoETSILIP
	ProtoP25Tier2LOCN
)

// portTable maps a UDP port (same value on both src and dst) to the
// embedded protocol it carries, per spec §4.7.
var portTable = map[uint16]Proto{
	231:   ProtoCellocator,
	4001:  ProtoLRRP,
	4004:  ProtoXCMP,
	4005:  ProtoARS,
	4007:  ProtoTMSMotorola,
	4008:  ProtoTelemetry,
	4009:  ProtoOTAP,
	4012:  ProtoBattMan,
	4013:  ProtoJTS,
	4069:  ProtoTRBOnetSCADA,
	5007:  ProtoVTXTMS,
	5016:  ProtoETSITMS,
	5017:  ProtoETSILIP,
	49198: ProtoP25Tier2LOCN,
}

// IPv4Header is the subset of an IPv4 header this decoder needs.
type IPv4Header struct {
	Version     int
	IHL         int // header length in 32-bit words
	TotalLength int
	Protocol    byte
	SrcAddr     [4]byte
	DstAddr     [4]byte
}

// HeaderLenBytes returns the header length in bytes.
func (h IPv4Header) HeaderLenBytes() int { return h.IHL * 4 }

const (
	protoICMP = 0x01
	protoUDP  = 0x11
)

// UDPDatagram is a parsed UDP header plus its payload.
type UDPDatagram struct {
	SrcPort uint16
	DstPort uint16
	Length  int
	Payload []byte
	Proto   Proto
}

// Result is the fully decoded tunnel content, which may recurse one
// level into an ICMP-quoted IPv4 packet.
type Result struct {
	IP       IPv4Header
	UDP      *UDPDatagram
	ICMPType byte
	ICMPCode byte
	Quoted   *Result // set when an ICMP message quotes an inner IPv4 packet
}

// ParseIPv4Header reads a bit-exact IPv4 header from buf. It rejects any
// buffer whose version is not 4 or whose IHL is less than 5 (20 bytes),
// per spec §4.7.
func ParseIPv4Header(buf []byte) (IPv4Header, error) {
	if len(buf) < 20 {
		return IPv4Header{}, fmt.Errorf("iptunnel: short ipv4 header: %d bytes", len(buf))
	}
	version := int(buf[0] >> 4)
	ihl := int(buf[0] & 0x0F)
	if version != 4 {
		return IPv4Header{}, fmt.Errorf("iptunnel: unsupported ip version %d", version)
	}
	if ihl < 5 {
		return IPv4Header{}, fmt.Errorf("iptunnel: invalid IHL %d", ihl)
	}
	h := IPv4Header{
		Version:     version,
		IHL:         ihl,
		TotalLength: int(binary.BigEndian.Uint16(buf[2:4])),
		Protocol:    buf[9],
	}
	copy(h.SrcAddr[:], buf[12:16])
	copy(h.DstAddr[:], buf[16:20])
	return h, nil
}

// Decode parses an IPv4 packet embedded in a data-PDU payload of at
// least 20 bytes, clamping the working length to min(total_length,
// len(buf)), and dispatches UDP datagrams by well-known port.
func Decode(buf []byte) (Result, error) {
	if len(buf) < 20 {
		return Result{}, fmt.Errorf("iptunnel: payload too short: %d bytes", len(buf))
	}
	h, err := ParseIPv4Header(buf)
	if err != nil {
		return Result{}, err
	}

	effectiveLen := h.TotalLength
	if effectiveLen > len(buf) || effectiveLen <= 0 {
		effectiveLen = len(buf)
	}
	headerLen := h.HeaderLenBytes()
	if headerLen > effectiveLen {
		return Result{}, fmt.Errorf("iptunnel: header length %d exceeds payload %d", headerLen, effectiveLen)
	}

	res := Result{IP: h}
	body := buf[headerLen:effectiveLen]

	switch h.Protocol {
	case protoICMP:
		if len(body) >= 2 {
			res.ICMPType = body[0]
			res.ICMPCode = body[1]
		}
		// An ICMP error message optionally quotes the original IPv4
		// datagram starting 8 bytes into the ICMP payload.
		if len(body) >= 8+20 {
			if quoted, err := Decode(body[8:]); err == nil {
				res.Quoted = &quoted
			}
		}
	case protoUDP:
		udp, err := decodeUDP(body)
		if err == nil {
			res.UDP = &udp
		}
	}
	return res, nil
}

func decodeUDP(body []byte) (UDPDatagram, error) {
	if len(body) < 8 {
		return UDPDatagram{}, fmt.Errorf("iptunnel: udp header too short: %d bytes", len(body))
	}
	srcPort := binary.BigEndian.Uint16(body[0:2])
	dstPort := binary.BigEndian.Uint16(body[2:4])
	udpLen := int(binary.BigEndian.Uint16(body[4:6]))

	effective := udpLen
	if effective > len(body) || effective < 8 {
		effective = len(body)
	}

	payload := body[8:effective]
	proto := ProtoUnknown
	if srcPort == dstPort {
		if p, ok := portTable[srcPort]; ok {
			proto = p
		}
	}
	return UDPDatagram{
		SrcPort: srcPort,
		DstPort: dstPort,
		Length:  effective,
		Payload: payload,
		Proto:   proto,
	}, nil
}
