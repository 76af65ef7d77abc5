package metadata

import (
	"math"
	"strings"
	"testing"

	"github.com/jo-hoe/gophotos/internal/testutil"
)

func TestCapturePeriodTag(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "standard timestamp", raw: "2024:10:27 15:30:00", want: "2024年10月", wantOK: true},
		{name: "month kept as written", raw: "2024:03:01 00:00:00", want: "2024年03月", wantOK: true},
		{name: "date only", raw: "1999:12", want: "1999年12月", wantOK: true},
		{name: "empty", raw: "", wantOK: false},
		{name: "no separator", raw: "20241027", wantOK: false},
		{name: "dash separated", raw: "2024-10-27 15:30:00", wantOK: false},
		{name: "non digit year", raw: "abcd:10:27 15:30:00", wantOK: false},
		{name: "blank month", raw: "2024::27", wantOK: false},
		{name: "spaces", raw: "    :  :     ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CapturePeriodTag(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("CapturePeriodTag(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("CapturePeriodTag(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestExtract_DateAndGPS(t *testing.T) {
	lat, lon := testutil.Coordinates(30.2741, -120.1551)
	data := testutil.JPEG(t, 64, 48, &testutil.EXIF{
		Make:             "TestCam",
		DateTimeOriginal: "2024:10:27 15:30:00",
		Latitude:         lat,
		Longitude:        lon,
	})

	md := Extract(data)

	if md.CapturePeriod != "2024年10月" {
		t.Fatalf("CapturePeriod = %q, want 2024年10月", md.CapturePeriod)
	}
	if md.GPS == nil {
		t.Fatalf("expected GPS coordinates")
	}
	if math.Abs(md.GPS.Latitude-30.2741) > 1e-4 {
		t.Fatalf("Latitude = %v", md.GPS.Latitude)
	}
	if math.Abs(md.GPS.Longitude+120.1551) > 1e-4 {
		t.Fatalf("Longitude = %v, expected western hemisphere to be negative", md.GPS.Longitude)
	}
	if md.Exif["Make"] != "TestCam" {
		t.Fatalf("Exif[Make] = %q", md.Exif["Make"])
	}
	if md.Exif["DateTimeOriginal"] != "2024:10:27 15:30:00" {
		t.Fatalf("Exif[DateTimeOriginal] = %q", md.Exif["DateTimeOriginal"])
	}
	for key := range md.Exif {
		if strings.HasPrefix(key, "Thumb") {
			t.Fatalf("thumbnail field %q must be excluded", key)
		}
	}
}

func TestExtract_WithoutExif(t *testing.T) {
	inputs := map[string][]byte{
		"png":     testutil.PNG(t, 10, 10),
		"gif":     testutil.GIF(t, 10, 10),
		"jpeg":    testutil.JPEG(t, 10, 10, nil),
		"garbage": []byte("definitely not an image"),
		"empty":   nil,
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			md := Extract(data)
			if md == nil || md.Exif == nil {
				t.Fatalf("expected non-nil result with empty map")
			}
			if md.CapturePeriod != "" || md.GPS != nil {
				t.Fatalf("expected no derived values, got %+v", md)
			}
		})
	}
}

func TestExtract_MalformedValuesAreSuppressed(t *testing.T) {
	tests := []struct {
		name   string
		fields *testutil.EXIF
	}{
		{
			name: "zero denominator",
			fields: &testutil.EXIF{
				Latitude:  &testutil.GPSAxis{Ref: "N", Value: []testutil.Rational{{Num: 30, Den: 0}, {Num: 1, Den: 1}, {Num: 1, Den: 1}}},
				Longitude: &testutil.GPSAxis{Ref: "E", Value: testutil.DMS(120)},
			},
		},
		{
			name: "too few components",
			fields: &testutil.EXIF{
				Latitude:  &testutil.GPSAxis{Ref: "N", Value: []testutil.Rational{{Num: 30, Den: 1}}},
				Longitude: &testutil.GPSAxis{Ref: "E", Value: testutil.DMS(120)},
			},
		},
		{
			name: "missing longitude",
			fields: &testutil.EXIF{
				Latitude: &testutil.GPSAxis{Ref: "N", Value: testutil.DMS(30)},
			},
		},
		{
			name: "unknown hemisphere",
			fields: &testutil.EXIF{
				Latitude:  &testutil.GPSAxis{Ref: "X", Value: testutil.DMS(30)},
				Longitude: &testutil.GPSAxis{Ref: "E", Value: testutil.DMS(120)},
			},
		},
		{
			name:   "unparseable date",
			fields: &testutil.EXIF{DateTimeOriginal: "not a date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := Extract(testutil.JPEG(t, 16, 16, tt.fields))
			if md.GPS != nil {
				t.Fatalf("expected GPS to be absent, got %+v", md.GPS)
			}
			if md.CapturePeriod != "" {
				t.Fatalf("expected no capture period, got %q", md.CapturePeriod)
			}
		})
	}
}

func TestExtract_TruncatedExifDoesNotPanic(t *testing.T) {
	data := testutil.JPEG(t, 16, 16, &testutil.EXIF{DateTimeOriginal: "2024:10:27 15:30:00"})
	// cut into the middle of the APP1 payload
	for _, n := range []int{4, 12, 20, 30, 40} {
		md := Extract(data[:n])
		if md == nil {
			t.Fatalf("Extract returned nil for %d bytes", n)
		}
	}
}

func TestDecodeGPS_NilTags(t *testing.T) {
	if got := DecodeGPS(nil, nil, nil, nil); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
