package lrrp

import (
	"encoding/binary"
	"math"
	"testing"

	"pgregory.net/rapid"
)

func buildPoint2D(latDeg, lonDeg float64) []byte {
	lat := int32(latDeg * 2147483648.0 / 90)
	lon := int32(lonDeg * 2147483648.0 / 180)
	buf := make([]byte, 9)
	buf[0] = tagPoint2D
	binary.BigEndian.PutUint32(buf[1:5], uint32(lat))
	binary.BigEndian.PutUint32(buf[5:9], uint32(lon))
	return buf
}

func TestDecodePoint2D(t *testing.T) {
	buf := buildPoint2D(40.0, -105.0)
	msg, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Point == nil {
		t.Fatal("expected a decoded point")
	}
	if math.Abs(msg.Point.LatDeg-40.0) > 0.0001 {
		t.Fatalf("expected lat ~40.0, got %f", msg.Point.LatDeg)
	}
	if math.Abs(msg.Point.LonDeg-(-105.0)) > 0.0001 {
		t.Fatalf("expected lon ~-105.0, got %f", msg.Point.LonDeg)
	}
}

func TestResyncSkipsGarbagePrefix(t *testing.T) {
	garbage := []byte{0xAA, 0xBB, 0xCC}
	point := buildPoint2D(10.0, 20.0)
	buf := append(append([]byte(nil), garbage...), point...)

	msg, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Point == nil {
		t.Fatal("expected resync to recover the point despite a garbage prefix")
	}
}

func TestTimestampRejectsOutOfRangeMonth(t *testing.T) {
	// Hand-build a timestamp token with month = 13 (invalid).
	// year=26 (2026), month=13, day=1, hour=0, min=0, sec=0
	var v uint64
	v |= uint64(26) << 33
	v |= uint64(13) << 29
	v |= uint64(1) << 24
	body := []byte{
		byte(v >> 32), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	}
	buf := append([]byte{tagTimestampA}, body...)
	msg, _ := Decode(buf)
	if msg.Timestamp != nil {
		t.Fatal("expected invalid month to reject the timestamp")
	}
}

func TestUnknownTagsDoNotPreventResync(t *testing.T) {
	buf := append([]byte{0x01, 0x02}, buildPoint2D(5.0, 5.0)...)
	msg, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Point == nil {
		t.Fatal("expected point to decode despite leading unknown tags")
	}
}

// TestPoint2DRoundTripProperty checks that any in-range lat/lon survives
// the encode/decode + resync loop to within quantization error.
func TestPoint2DRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lat := rapid.Float64Range(-89.0, 89.0).Draw(rt, "lat")
		lon := rapid.Float64Range(-179.0, 179.0).Draw(rt, "lon")
		prefixLen := rapid.IntRange(0, 6).Draw(rt, "prefixLen")

		prefix := make([]byte, prefixLen)
		for i := range prefix {
			prefix[i] = 0x01 // an unknown single-byte tag, consumed one byte at a time
		}
		buf := append(prefix, buildPoint2D(lat, lon)...)

		msg, err := Decode(buf)
		if err != nil {
			rt.Fatal(err)
		}
		if msg.Point == nil {
			rt.Fatal("expected a decoded point")
		}
		if math.Abs(msg.Point.LatDeg-lat) > 0.01 {
			rt.Fatalf("lat drifted: want %f got %f", lat, msg.Point.LatDeg)
		}
		if math.Abs(msg.Point.LonDeg-lon) > 0.01 {
			rt.Fatalf("lon drifted: want %f got %f", lon, msg.Point.LonDeg)
		}
	})
}
