// Package ntpwire implements the NTPv4 client-mode wire format: encoding and
// decoding of the 48-byte packet body and conversion between NTP's 1900
// epoch fixed-point timestamps and Go's time.Time.
package ntpwire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

// PacketSizeBytes is the fixed size of an NTPv4 packet body.
const PacketSizeBytes = 48

// ntpUnixEpochDiff is the number of seconds between the NTP epoch
// (1900-01-01) and the Unix epoch (1970-01-01).
const ntpUnixEpochDiff = 2208988800

const (
	leapNoWarning      = 0
	leapAlarmCondition = 3
	versionMin         = 1
	versionMax         = 4
	modeClient         = 3
	modeServer         = 4
	modeBroadcast      = 5
)

// ErrShortPacket is returned when a byte slice is smaller than PacketSizeBytes.
var ErrShortPacket = errors.New("ntpwire: packet shorter than 48 bytes")

// ErrBadPacket is returned when a decoded packet fails LI/VN/Mode validation.
var ErrBadPacket = errors.New("ntpwire: invalid LI/VN/Mode settings byte")

// Packet is the 48-byte NTPv4 packet body, laid out exactly as it appears
// on the wire (RFC 5905 figure 8), so that binary.Write/Read can marshal it
// directly without any intermediate copying.
type Packet struct {
	Settings       uint8 // leap indicator (2 bits) | version (3 bits) | mode (3 bits)
	Stratum        uint8
	Poll           int8
	Precision      int8
	RootDelay      uint32
	RootDispersion uint32
	ReferenceID    uint32
	RefTimeSec     uint32
	RefTimeFrac    uint32
	OrigTimeSec    uint32
	OrigTimeFrac   uint32
	RxTimeSec      uint32
	RxTimeFrac     uint32
	TxTimeSec      uint32
	TxTimeFrac     uint32
}

// NewClientRequest builds a client-mode query packet with VN=4, Mode=3, LI=0,
// and the transmit timestamp set from sendTime. A compliant server echoes
// this value back into the reply's origin timestamp, which is how the
// client matches a reply to the exact request that produced it.
func NewClientRequest(sendTime time.Time) *Packet {
	sec, frac := toNTPTimestamp(sendTime)
	return &Packet{
		Settings:   encodeSettings(leapNoWarning, 4, modeClient),
		TxTimeSec:  sec,
		TxTimeFrac: frac,
	}
}

// Bytes encodes the packet into its 48-byte wire representation.
func (p *Packet) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(PacketSizeBytes)
	if err := binary.Write(&buf, binary.BigEndian, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePacket parses a 48-byte buffer into a Packet.
func DecodePacket(raw []byte) (*Packet, error) {
	if len(raw) < PacketSizeBytes {
		return nil, ErrShortPacket
	}
	p := &Packet{}
	reader := bytes.NewReader(raw[:PacketSizeBytes])
	if err := binary.Read(reader, binary.BigEndian, p); err != nil {
		return nil, err
	}
	return p, nil
}

// LeapIndicator returns the 2-bit leap indicator field.
func (p *Packet) LeapIndicator() uint8 {
	return p.Settings >> 6
}

// Version returns the 3-bit version field.
func (p *Packet) Version() uint8 {
	return (p.Settings >> 3) & 0x07
}

// Mode returns the 3-bit mode field.
func (p *Packet) Mode() uint8 {
	return p.Settings & 0x07
}

// ValidReplySettings reports whether the settings byte of a server reply is
// well-formed: LI in {0,1,2,3}, VN in [1,4], Mode is server or broadcast.
// The NTP spec permits LI values 0-3 in a reply (3 means "clock not
// synchronized" and is rejected by the sampler's own validation, not here).
func (p *Packet) ValidReplySettings() bool {
	v := p.Version()
	m := p.Mode()
	if v < versionMin || v > versionMax {
		return false
	}
	return m == modeServer || m == modeBroadcast
}

func encodeSettings(leap, version, mode uint8) uint8 {
	return (leap << 6) | ((version & 0x07) << 3) | (mode & 0x07)
}

// OriginTime reconstructs the origin timestamp (T1 as echoed by the server).
func (p *Packet) OriginTime() time.Time {
	return fromNTPTimestamp(p.OrigTimeSec, p.OrigTimeFrac)
}

// ReceiveTime reconstructs the server's receive timestamp (T2).
func (p *Packet) ReceiveTime() time.Time {
	return fromNTPTimestamp(p.RxTimeSec, p.RxTimeFrac)
}

// TransmitTime reconstructs the server's transmit timestamp (T3).
func (p *Packet) TransmitTime() time.Time {
	return fromNTPTimestamp(p.TxTimeSec, p.TxTimeFrac)
}

// ReferenceTime reconstructs the server's reference timestamp.
func (p *Packet) ReferenceTime() time.Time {
	return fromNTPTimestamp(p.RefTimeSec, p.RefTimeFrac)
}

// toNTPTimestamp converts a time.Time into the NTP 32.32 fixed-point
// seconds+fraction pair relative to the 1900 epoch.
func toNTPTimestamp(t time.Time) (sec, frac uint32) {
	u := t.UTC()
	secs := u.Unix() + ntpUnixEpochDiff
	nanos := uint64(u.Nanosecond())
	frac = uint32((nanos << 32) / 1e9)
	return uint32(secs), frac
}

// fromNTPTimestamp converts an NTP 32.32 fixed-point seconds+fraction pair
// back into a time.Time. A zero sec/frac pair maps to the zero time.Time,
// matching the wire convention that an unset timestamp field is all-zero.
func fromNTPTimestamp(sec, frac uint32) time.Time {
	if sec == 0 && frac == 0 {
		return time.Time{}
	}
	secs := int64(sec) - ntpUnixEpochDiff
	nanos := (uint64(frac) * 1e9) >> 32
	return time.Unix(secs, int64(nanos)).UTC()
}
