package metadata

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// Metadata is what could be recovered from an image's EXIF block.
type Metadata struct {
	// Exif holds every readable field except embedded thumbnail data.
	Exif map[string]string
	// CapturePeriod is "<year>年<month>月", empty when no usable DateTimeOriginal exists.
	CapturePeriod string
	// GPS is nil when the image carries no complete position.
	GPS *Coordinates
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Extract parses EXIF from data. It never fails: images without EXIF,
// formats goexif does not understand and malformed blocks yield an empty result.
func Extract(data []byte) (result *Metadata) {
	result = &Metadata{Exif: map[string]string{}}

	defer func() {
		if r := recover(); r != nil {
			slog.Debug("Metadata: recovered from malformed exif", "panic", r)
			result = &Metadata{Exif: map[string]string{}}
		}
	}()

	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil {
		slog.Debug("Metadata: no exif data", "error", err)
		return result
	}
	if err != nil {
		// critical errors return a nil Exif, anything else still carries usable fields
		slog.Debug("Metadata: partial exif data", "error", err)
	}

	if err := x.Walk(fieldCollector(result.Exif)); err != nil {
		slog.Debug("Metadata: exif walk stopped early", "error", err)
	}

	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		if raw, err := tag.StringVal(); err == nil {
			if period, ok := CapturePeriodTag(raw); ok {
				result.CapturePeriod = period
			}
		}
	}

	result.GPS = DecodeGPS(getTag(x, exif.GPSLatitudeRef), getTag(x, exif.GPSLatitude),
		getTag(x, exif.GPSLongitudeRef), getTag(x, exif.GPSLongitude))

	return result
}

func getTag(x *exif.Exif, name exif.FieldName) *tiff.Tag {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	return tag
}

type fieldCollector map[string]string

func (c fieldCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	key := string(name)
	if strings.HasPrefix(key, "Thumb") || tag == nil {
		return nil
	}
	c[key] = tagValue(tag)
	return nil
}

func tagValue(tag *tiff.Tag) string {
	if tag.Format() == tiff.StringVal {
		if s, err := tag.StringVal(); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return tag.String()
}

// CapturePeriodTag turns an EXIF timestamp ("2024:10:27 15:30:00") into "2024年10月".
// The month is kept as written, so "2024:03:..." becomes "2024年03月".
func CapturePeriodTag(raw string) (string, bool) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 {
		return "", false
	}
	year, month := parts[0], parts[1]
	if !isDigits(year) || !isDigits(month) {
		return "", false
	}
	return fmt.Sprintf("%s年%s月", year, month), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DecodeGPS converts degree/minute/second rationals plus hemisphere references into
// signed decimal degrees. Any missing or unreadable component yields nil.
func DecodeGPS(latRef, lat, lonRef, lon *tiff.Tag) *Coordinates {
	latitude, ok := decodeAxis(latRef, lat, "N", "S")
	if !ok {
		return nil
	}
	longitude, ok := decodeAxis(lonRef, lon, "E", "W")
	if !ok {
		return nil
	}
	return &Coordinates{Latitude: latitude, Longitude: longitude}
}

func decodeAxis(refTag, valueTag *tiff.Tag, positive, negative string) (float64, bool) {
	if refTag == nil || valueTag == nil {
		return 0, false
	}
	ref, err := refTag.StringVal()
	if err != nil {
		return 0, false
	}
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref != positive && ref != negative {
		return 0, false
	}
	if valueTag.Format() != tiff.RatVal || valueTag.Count < 3 {
		return 0, false
	}

	var parts [3]float64
	for i := range parts {
		num, den, err := valueTag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		parts[i] = float64(num) / float64(den)
	}

	value := parts[0] + parts[1]/60 + parts[2]/3600
	if ref == negative {
		value = -value
	}
	return value, true
}
