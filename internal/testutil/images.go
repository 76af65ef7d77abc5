// Package testutil builds image fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"sort"
	"testing"
)

type Rational struct {
	Num, Den uint32
}

// GPSAxis is one coordinate as stored in a GPS IFD.
type GPSAxis struct {
	Ref   string
	Value []Rational
}

// EXIF describes the fields written into a fixture's APP1 segment.
// Empty fields are left out.
type EXIF struct {
	Make             string
	DateTimeOriginal string
	Latitude         *GPSAxis
	Longitude        *GPSAxis
}

// DMS encodes decimal degrees as degree/minute/second rationals.
func DMS(decimal float64) []Rational {
	decimal = math.Abs(decimal)
	degrees := math.Floor(decimal)
	minutes := math.Floor((decimal - degrees) * 60)
	seconds := ((decimal-degrees)*60 - minutes) * 60
	return []Rational{
		{Num: uint32(degrees), Den: 1},
		{Num: uint32(minutes), Den: 1},
		{Num: uint32(math.Round(seconds * 1000)), Den: 1000},
	}
}

// Coordinates builds latitude/longitude axes with hemisphere references.
func Coordinates(lat, lon float64) (*GPSAxis, *GPSAxis) {
	latRef, lonRef := "N", "E"
	if lat < 0 {
		latRef = "S"
	}
	if lon < 0 {
		lonRef = "W"
	}
	return &GPSAxis{Ref: latRef, Value: DMS(lat)}, &GPSAxis{Ref: lonRef, Value: DMS(lon)}
}

func Pattern(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(width, 1)), G: uint8(y * 255 / max(height, 1)), B: 128, A: 255})
		}
	}
	return img
}

func PNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Pattern(width, height)); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func GIF(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, Pattern(width, height), nil); err != nil {
		t.Fatalf("failed to encode gif: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a pattern image and, when fields is non-nil, splices an EXIF
// APP1 segment directly after the SOI marker.
func JPEG(t *testing.T, width, height int, fields *EXIF) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Pattern(width, height), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	encoded := buf.Bytes()
	if fields == nil {
		return encoded
	}

	payload := append([]byte("Exif\x00\x00"), TIFF(fields)...)
	if len(payload)+2 > math.MaxUint16 {
		t.Fatalf("exif payload too large: %d bytes", len(payload))
	}

	out := make([]byte, 0, len(encoded)+len(payload)+4)
	out = append(out, encoded[:2]...)
	out = append(out, 0xFF, 0xE1)
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)+2))
	out = append(out, payload...)
	out = append(out, encoded[2:]...)
	return out
}

const (
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5

	tagMake             = 0x010F
	tagExifIFDPointer   = 0x8769
	tagGPSIFDPointer    = 0x8825
	tagDateTimeOriginal = 0x9003
	tagGPSLatitudeRef   = 0x0001
	tagGPSLatitude      = 0x0002
	tagGPSLongitudeRef  = 0x0003
	tagGPSLongitude     = 0x0004
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiEntry(tag uint16, s string) ifdEntry {
	data := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
}

func rationalEntry(tag uint16, values []Rational) ifdEntry {
	data := make([]byte, 0, 8*len(values))
	for _, v := range values {
		data = binary.LittleEndian.AppendUint32(data, v.Num)
		data = binary.LittleEndian.AppendUint32(data, v.Den)
	}
	return ifdEntry{tag: tag, typ: typeRational, count: uint32(len(values)), data: data}
}

func longEntry(tag uint16, value uint32) ifdEntry {
	return ifdEntry{tag: tag, typ: typeLong, count: 1, data: binary.LittleEndian.AppendUint32(nil, value)}
}

// encodeIFD lays out entries at offset, followed by the values that do not fit inline.
func encodeIFD(entries []ifdEntry, offset uint32) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	head := make([]byte, 0, 2+12*len(entries)+4)
	var data []byte
	dataOffset := offset + uint32(2+12*len(entries)+4)

	head = binary.LittleEndian.AppendUint16(head, uint16(len(entries)))
	for _, e := range entries {
		head = binary.LittleEndian.AppendUint16(head, e.tag)
		head = binary.LittleEndian.AppendUint16(head, e.typ)
		head = binary.LittleEndian.AppendUint32(head, e.count)
		if len(e.data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.data)
			head = append(head, inline...)
			continue
		}
		head = binary.LittleEndian.AppendUint32(head, dataOffset+uint32(len(data)))
		data = append(data, e.data...)
		if len(data)%2 == 1 {
			data = append(data, 0)
		}
	}
	head = binary.LittleEndian.AppendUint32(head, 0)
	return append(head, data...)
}

// TIFF renders fields as a little-endian TIFF structure with Exif and GPS sub-IFDs.
func TIFF(fields *EXIF) []byte {
	var exifEntries, gpsEntries []ifdEntry
	if fields.DateTimeOriginal != "" {
		exifEntries = append(exifEntries, asciiEntry(tagDateTimeOriginal, fields.DateTimeOriginal))
	}
	if fields.Latitude != nil {
		gpsEntries = append(gpsEntries,
			asciiEntry(tagGPSLatitudeRef, fields.Latitude.Ref),
			rationalEntry(tagGPSLatitude, fields.Latitude.Value))
	}
	if fields.Longitude != nil {
		gpsEntries = append(gpsEntries,
			asciiEntry(tagGPSLongitudeRef, fields.Longitude.Ref),
			rationalEntry(tagGPSLongitude, fields.Longitude.Value))
	}

	ifd0 := func(exifOffset, gpsOffset uint32) []ifdEntry {
		var entries []ifdEntry
		if fields.Make != "" {
			entries = append(entries, asciiEntry(tagMake, fields.Make))
		}
		if len(exifEntries) > 0 {
			entries = append(entries, longEntry(tagExifIFDPointer, exifOffset))
		}
		if len(gpsEntries) > 0 {
			entries = append(entries, longEntry(tagGPSIFDPointer, gpsOffset))
		}
		return entries
	}

	const headerSize = 8
	// pointer values are inline, so the first pass only sizes IFD0
	ifd0Size := uint32(len(encodeIFD(ifd0(0, 0), headerSize)))
	exifOffset := headerSize + ifd0Size
	var exifIFD []byte
	if len(exifEntries) > 0 {
		exifIFD = encodeIFD(exifEntries, exifOffset)
	}
	gpsOffset := exifOffset + uint32(len(exifIFD))
	var gpsIFD []byte
	if len(gpsEntries) > 0 {
		gpsIFD = encodeIFD(gpsEntries, gpsOffset)
	}

	out := []byte{'I', 'I', 0x2A, 0x00}
	out = binary.LittleEndian.AppendUint32(out, headerSize)
	out = append(out, encodeIFD(ifd0(exifOffset, gpsOffset), headerSize)...)
	out = append(out, exifIFD...)
	out = append(out, gpsIFD...)
	return out
}
