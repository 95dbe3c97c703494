// internal/service/job.go
package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"printer-service/internal/escpos"
	"printer-service/internal/raster"
)

// ErrInvalidJob is returned for job requests that cannot be built
var ErrInvalidJob = errors.New("invalid job")

// JobRequest is the JSON form of a print job
type JobRequest struct {
	Items []JobItem `json:"items" binding:"required"`
}

// JobItem is one entry of a JobRequest. Type selects which other fields
// are read.
type JobItem struct {
	Type      string `json:"type" binding:"required"`
	Directive string `json:"directive,omitempty"`
	Text      string `json:"text,omitempty"`
	Image     string `json:"image,omitempty"` // base64, any supported format
	MaxWidth  int    `json:"max_width,omitempty"`
}

// BuildJob turns a request into a job. Images are decoded and rasterized
// here, so a bad image fails before anything reaches the printer.
func BuildJob(req JobRequest, defaultMaxWidth int) (*escpos.Job, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: job has no items", ErrInvalidJob)
	}
	if defaultMaxWidth <= 0 {
		defaultMaxWidth = raster.DefaultMaxWidth
	}

	job := escpos.NewJob()
	for i, it := range req.Items {
		item, err := buildItem(it, defaultMaxWidth)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		job.Append(item)
	}
	return job, nil
}

func buildItem(it JobItem, defaultMaxWidth int) (escpos.Item, error) {
	switch escpos.ItemKind(strings.ToLower(it.Type)) {
	case escpos.KindDirective:
		d, err := escpos.ParseDirective(it.Directive)
		if err != nil {
			return escpos.Item{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
		}
		return escpos.Command(d), nil

	case escpos.KindText:
		return escpos.Text(it.Text), nil

	case escpos.KindImage:
		data, err := decodeBase64(it.Image)
		if err != nil {
			return escpos.Item{}, fmt.Errorf("%w: image is not valid base64: %v", ErrInvalidJob, err)
		}
		maxWidth := it.MaxWidth
		if maxWidth <= 0 {
			maxWidth = defaultMaxWidth
		}
		img, err := raster.Decode(bytes.NewReader(data), maxWidth)
		if err != nil {
			return escpos.Item{}, err
		}
		return escpos.Image(img), nil

	case escpos.KindQRCode:
		return escpos.QRCode(it.Text), nil

	default:
		return escpos.Item{}, fmt.Errorf("%w: unknown item type %q", ErrInvalidJob, it.Type)
	}
}

// decodeBase64 accepts standard or URL encoding, padded or not, and an
// optional data URL prefix
func decodeBase64(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty image")
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, errors.New("unrecognized base64 alphabet")
}
