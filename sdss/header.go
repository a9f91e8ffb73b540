// Package sdss implements the engine's single-file storage header: a
// 64-byte preamble shared by every persistent file the engine writes.
package sdss

import (
	"encoding/binary"
	"time"

	"github.com/driftdb/driftdb/lib/ferr"
)

// HeaderSize is the fixed on-disk size of the preamble.
const HeaderSize = 64

// magic is the fixed sentinel stamped at the start of every file.
const magic uint64 = 0x5344535331000001 // "SDSS1" + version nibble

// HeaderFormatVersion is the version of this 64-byte layout itself.
const HeaderFormatVersion uint64 = 1

// HostOS, HostArch, HostPointerWidth, HostEndian are small enums describing
// the machine that created the file. They are informational only: decoding
// never validates them against the current host; host data is
// informational only.
type HostOS uint8

const (
	HostOSLinux HostOS = iota
	HostOSDarwin
	HostOSWindows
	HostOSFreeBSD
	HostOSOther
)

type HostArch uint8

const (
	HostArchX86_64 HostArch = iota
	HostArchARM64
	HostArchOther
)

type HostPointerWidth uint8

const (
	HostPointerWidth32 HostPointerWidth = iota
	HostPointerWidth64
)

type HostEndian uint8

const (
	HostEndianLittle HostEndian = iota
	HostEndianBig
)

// FileClass identifies the broad category of file (GNS journal vs model
// batch journal vs model meta sidecar).
type FileClass uint8

const (
	FileClassGNSJournal FileClass = iota
	FileClassModelBatchJournal
	FileClassModelMeta
)

// FileSpecifier further distinguishes files within a class. Today there is
// exactly one specifier per class; the field exists so future file shapes
// within a class can be told apart without bumping the header version.
type FileSpecifier uint8

const (
	FileSpecifierDefault FileSpecifier = iota
)

func validHostOS(b uint8) bool    { return b <= uint8(HostOSOther) }
func validHostArch(b uint8) bool  { return b <= uint8(HostArchOther) }
func validHostPtr(b uint8) bool   { return b <= uint8(HostPointerWidth64) }
func validHostEndian(b uint8) bool { return b <= uint8(HostEndianBig) }

// Host captures the informational host-descriptor bytes.
type Host struct {
	OS           HostOS
	Arch         HostArch
	PointerWidth HostPointerWidth
	Endian       HostEndian
}

// CurrentHost returns a Host struct describing the machine driftdb is
// running on. Only amd64/arm64, linux/darwin/windows/freebsd are distinguished;
// anything else is tagged "Other" since the descriptor is informational.
func CurrentHost() Host {
	return Host{
		OS:           currentHostOS(),
		Arch:         currentHostArch(),
		PointerWidth: HostPointerWidth64,
		Endian:       HostEndianLittle,
	}
}

// Header is the decoded form of the 64-byte SDSS preamble.
type Header struct {
	HeaderVersion   uint64
	ServerVersion   uint64
	DriverVersion   uint64
	Host            Host
	Class           FileClass
	Specifier       FileSpecifier
	SpecifierVersion uint16
	EpochNanos      uint128
}

// uint128 is a minimal little-endian 128-bit unsigned integer: (lo, hi).
type uint128 struct {
	Lo, Hi uint64
}

// EpochNanosNow packs time t as the SDSS creation-epoch field.
func EpochNanosNow(t time.Time) uint128 {
	ns := uint64(t.UnixNano())
	return uint128{Lo: ns, Hi: 0}
}

// Compat is the pair of adapter-supplied predicates that gate header
// validity beyond the structural checks.
type Compat struct {
	ServerVersionOK func(serverVersion uint64) bool
	DriverVersionOK func(driverVersion uint64) bool
}

// WriteParams describes the header an adapter wants stamped onto a new
// file.
type WriteParams struct {
	ServerVersion   uint64
	DriverVersion   uint64
	Class           FileClass
	Specifier       FileSpecifier
	SpecifierVersion uint16
	Epoch           uint128
}

// Encode renders p into a fresh HeaderSize-byte preamble.
func Encode(p WriteParams) [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], magic)
	binary.LittleEndian.PutUint64(buf[8:16], HeaderFormatVersion)
	binary.LittleEndian.PutUint64(buf[16:24], p.ServerVersion)
	binary.LittleEndian.PutUint64(buf[24:32], p.DriverVersion)
	host := CurrentHost()
	buf[32] = uint8(host.OS)
	buf[33] = uint8(host.Arch)
	buf[34] = uint8(host.PointerWidth)
	buf[35] = uint8(host.Endian)
	buf[36] = uint8(p.Class)
	buf[37] = uint8(p.Specifier)
	binary.LittleEndian.PutUint16(buf[38:40], p.SpecifierVersion)
	binary.LittleEndian.PutUint64(buf[40:48], p.Epoch.Lo)
	binary.LittleEndian.PutUint64(buf[48:56], p.Epoch.Hi)
	// [56:64) left zero (padding).
	return buf
}

// Decode parses and validates a HeaderSize-byte preamble against compat.
//
// File-class/specifier mismatch is reported as
// ferr.FileDecodeHeaderVersionMismatch; every other
// structural violation is ferr.FileDecodeHeaderCorrupted.
func Decode(buf []byte, compat Compat, wantClass FileClass, wantSpecifier FileSpecifier) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ferr.New(ferr.FileDecodeHeaderCorrupted, "short header")
	}
	if binary.LittleEndian.Uint64(buf[0:8]) != magic {
		return Header{}, ferr.New(ferr.FileDecodeHeaderCorrupted, "magic mismatch")
	}
	headerVersion := binary.LittleEndian.Uint64(buf[8:16])
	if headerVersion > HeaderFormatVersion {
		return Header{}, ferr.New(ferr.FileDecodeHeaderCorrupted, "header version from the future")
	}
	serverVersion := binary.LittleEndian.Uint64(buf[16:24])
	driverVersion := binary.LittleEndian.Uint64(buf[24:32])

	if !validHostOS(buf[32]) || !validHostArch(buf[33]) || !validHostPtr(buf[34]) || !validHostEndian(buf[35]) {
		return Header{}, ferr.New(ferr.FileDecodeHeaderCorrupted, "host descriptor out of range")
	}
	host := Host{
		OS:           HostOS(buf[32]),
		Arch:         HostArch(buf[33]),
		PointerWidth: HostPointerWidth(buf[34]),
		Endian:       HostEndian(buf[35]),
	}

	class := FileClass(buf[36])
	specifier := FileSpecifier(buf[37])
	if class != wantClass || specifier != wantSpecifier {
		return Header{}, ferr.New(ferr.FileDecodeHeaderVersionMismatch, "file class/specifier mismatch")
	}
	specVersion := binary.LittleEndian.Uint16(buf[38:40])
	epoch := uint128{
		Lo: binary.LittleEndian.Uint64(buf[40:48]),
		Hi: binary.LittleEndian.Uint64(buf[48:56]),
	}

	if compat.ServerVersionOK != nil && !compat.ServerVersionOK(serverVersion) {
		return Header{}, ferr.New(ferr.FileDecodeHeaderVersionMismatch, "incompatible server version")
	}
	if compat.DriverVersionOK != nil && !compat.DriverVersionOK(driverVersion) {
		return Header{}, ferr.New(ferr.FileDecodeHeaderVersionMismatch, "incompatible driver version")
	}

	return Header{
		HeaderVersion:    headerVersion,
		ServerVersion:    serverVersion,
		DriverVersion:    driverVersion,
		Host:             host,
		Class:            class,
		Specifier:        specifier,
		SpecifierVersion: specVersion,
		EpochNanos:       epoch,
	}, nil
}
