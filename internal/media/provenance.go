package media

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
)

// Provenance is the capture metadata embedded in an uploaded image. Images
// produced by generators usually carry none of it.
type Provenance struct {
	CameraMake  string     `json:"camera_make,omitempty"`
	CameraModel string     `json:"camera_model,omitempty"`
	TakenAt     *time.Time `json:"taken_at,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
}

// Empty reports whether no capture metadata was found.
func (p Provenance) Empty() bool {
	return p.CameraMake == "" && p.CameraModel == "" && p.TakenAt == nil && p.Latitude == nil
}

// ReadProvenance extracts EXIF capture metadata. Only the metadata blocks
// are read, not the pixel data.
func ReadProvenance(r io.ReadSeeker) (Provenance, error) {
	exif, err := imagemeta.Decode(r)
	if err != nil {
		return Provenance{}, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	p := Provenance{
		CameraMake:  strings.TrimSpace(exif.Make),
		CameraModel: strings.TrimSpace(exif.Model),
	}

	for _, t := range []time.Time{exif.DateTimeOriginal(), exif.CreateDate(), exif.ModifyDate()} {
		if !t.IsZero() {
			taken := t
			p.TakenAt = &taken
			break
		}
	}

	if lat, lon := exif.GPS.Latitude(), exif.GPS.Longitude(); lat != 0 || lon != 0 {
		p.Latitude = &lat
		p.Longitude = &lon
	}
	return p, nil
}
