package iptunnel

import (
	"encoding/binary"
	"testing"
)

func buildIPv4UDP(t *testing.T, srcPort, dstPort uint16, payload []byte) []byte {
	t.Helper()
	udpLen := 8 + len(payload)
	totalLen := 20 + udpLen
	buf := make([]byte, totalLen)
	buf[0] = 0x45 // version 4, IHL 5
	binary.BigEndian.PutUint16(buf[2:4], uint16(totalLen))
	buf[9] = protoUDP
	copy(buf[12:16], []byte{10, 0, 0, 1})
	copy(buf[16:20], []byte{10, 0, 0, 2})

	udp := buf[20:]
	binary.BigEndian.PutUint16(udp[0:2], srcPort)
	binary.BigEndian.PutUint16(udp[2:4], dstPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpLen))
	copy(udp[8:], payload)
	return buf
}

func TestRejectsNonIPv4Version(t *testing.T) {
	buf := make([]byte, 20)
	buf[0] = 0x65 // version 6
	_, err := ParseIPv4Header(buf)
	if err == nil {
		t.Fatal("expected rejection of non-IPv4 version")
	}
}

func TestRejectsShortIHL(t *testing.T) {
	buf := make([]byte, 20)
	buf[0] = 0x43 // version 4, IHL 3 (< 5)
	_, err := ParseIPv4Header(buf)
	if err == nil {
		t.Fatal("expected rejection of IHL < 5")
	}
}

func TestDecodeUDPDispatchesLRRPPort(t *testing.T) {
	buf := buildIPv4UDP(t, 4001, 4001, []byte{0x01, 0x02, 0x03})
	res, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if res.UDP == nil {
		t.Fatal("expected a parsed UDP datagram")
	}
	if res.UDP.Proto != ProtoLRRP {
		t.Fatalf("expected ProtoLRRP, got %v", res.UDP.Proto)
	}
	if len(res.UDP.Payload) != 3 {
		t.Fatalf("expected 3-byte payload, got %d", len(res.UDP.Payload))
	}
}

func TestDecodeUDPMismatchedPortsDontDispatch(t *testing.T) {
	buf := buildIPv4UDP(t, 4001, 4002, []byte{0x01})
	res, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if res.UDP.Proto != ProtoUnknown {
		t.Fatalf("expected ProtoUnknown for mismatched ports, got %v", res.UDP.Proto)
	}
}

func TestDecodeClampsTotalLengthToAvailable(t *testing.T) {
	buf := buildIPv4UDP(t, 4007, 4007, []byte{0xAA, 0xBB})
	// Claim a larger total length than actually available.
	binary.BigEndian.PutUint16(buf[2:4], 9999)
	res, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if res.UDP == nil {
		t.Fatal("expected decode to clamp and still parse UDP")
	}
}

func TestICMPRecursesIntoQuotedIPv4(t *testing.T) {
	inner := buildIPv4UDP(t, 4001, 4001, []byte{0x01})
	icmpPayload := append([]byte{0x03, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, inner...)
	totalLen := 20 + len(icmpPayload)
	buf := make([]byte, totalLen)
	buf[0] = 0x45
	binary.BigEndian.PutUint16(buf[2:4], uint16(totalLen))
	buf[9] = protoICMP
	copy(buf[20:], icmpPayload)

	res, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if res.ICMPType != 0x03 {
		t.Fatalf("expected ICMP type 3, got %d", res.ICMPType)
	}
	if res.Quoted == nil {
		t.Fatal("expected a quoted inner IPv4 packet")
	}
	if res.Quoted.UDP == nil || res.Quoted.UDP.Proto != ProtoLRRP {
		t.Fatal("expected quoted packet's UDP to dispatch to LRRP")
	}
}
