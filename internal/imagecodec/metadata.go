package imagecodec

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// SourceMetadata holds EXIF fields read from an uploaded photo before it is
// normalized. Normalization drops all metadata, so this is the only record
// of where the frame came from.
type SourceMetadata struct {
	CameraMake  string    `json:"camera_make,omitempty"`
	CameraModel string    `json:"camera_model,omitempty"`
	DateTaken   time.Time `json:"date_taken,omitempty"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	HasGPS      bool      `json:"has_gps"`
	HasDate     bool      `json:"has_date"`
}

// ExtractMetadata reads EXIF data from raw image bytes. Formats without EXIF
// (PNG from a generator, for instance) return an error the caller may ignore.
func ExtractMetadata(data []byte) (*SourceMetadata, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	meta := &SourceMetadata{
		CameraMake:  strings.TrimSpace(exifData.Make),
		CameraModel: strings.TrimSpace(exifData.Model),
	}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		meta.Latitude = gps.Latitude()
		meta.Longitude = gps.Longitude()
		meta.HasGPS = true
	}

	// DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		meta.DateTaken = exifData.DateTimeOriginal()
		meta.HasDate = true
	case !exifData.CreateDate().IsZero():
		meta.DateTaken = exifData.CreateDate()
		meta.HasDate = true
	case !exifData.ModifyDate().IsZero():
		meta.DateTaken = exifData.ModifyDate()
		meta.HasDate = true
	}

	log.Debug().
		Bool("has_gps", meta.HasGPS).
		Bool("has_date", meta.HasDate).
		Str("camera", meta.CameraMake).
		Msg("Source image metadata extracted")

	return meta, nil
}
