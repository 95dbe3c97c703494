// internal/escpos/job.go
package escpos

import (
	"fmt"
	"strings"

	"printer-service/internal/model"
	"printer-service/internal/raster"
)

var errNoImage = model.NewError(model.ErrDecodeFailure, "", "encode image", fmt.Errorf("image item has no image"))

// ItemKind tags the variant held by an Item
type ItemKind string

const (
	KindDirective ItemKind = "directive"
	KindText      ItemKind = "text"
	KindImage     ItemKind = "image"
	KindQRCode    ItemKind = "qrcode"
)

// Item is one entry of a print job
type Item struct {
	Kind      ItemKind
	Directive Directive
	Text      string
	Image     *raster.Image
}

// Command wraps a directive
func Command(d Directive) Item {
	return Item{Kind: KindDirective, Directive: d}
}

// Text wraps literal text. It is sent as UTF-8 without escaping, so control
// bytes inside s reach the printer unchanged.
func Text(s string) Item {
	return Item{Kind: KindText, Text: s}
}

// Image wraps a rasterized picture
func Image(img *raster.Image) Item {
	return Item{Kind: KindImage, Image: img}
}

// QRCode is a placeholder; serializing it fails with ErrUnsupportedFeature
func QRCode(data string) Item {
	return Item{Kind: KindQRCode, Text: data}
}

// Job is an ordered list of items. Append order is print order.
type Job struct {
	items []Item
}

// NewJob creates a job from the given items
func NewJob(items ...Item) *Job {
	j := &Job{}
	j.AppendMany(items...)
	return j
}

// Append adds one item and returns the job for chaining
func (j *Job) Append(item Item) *Job {
	j.items = append(j.items, item)
	return j
}

// AppendMany adds items in order
func (j *Job) AppendMany(items ...Item) *Job {
	j.items = append(j.items, items...)
	return j
}

// Len returns the number of items
func (j *Job) Len() int {
	return len(j.items)
}

// Items returns a copy of the item list
func (j *Job) Items() []Item {
	return append([]Item(nil), j.items...)
}

// Serialize concatenates the encoding of every item. A QR code item aborts
// the whole job with no partial output.
func (j *Job) Serialize() ([]byte, error) {
	var out []byte
	for i, item := range j.items {
		b, err := item.encode()
		if err != nil {
			return nil, fmt.Errorf("failed to encode item %d: %w", i, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// Preview renders the job as plain text for terminal printers. Only line
// feeds among directives produce output; images become ASCII art.
func (j *Job) Preview() (string, error) {
	var sb strings.Builder
	for i, item := range j.items {
		switch item.Kind {
		case KindDirective:
			if item.Directive == LineFeed {
				sb.WriteByte('\n')
			}
		case KindText:
			sb.WriteString(item.Text)
		case KindImage:
			if item.Image == nil {
				return "", fmt.Errorf("failed to render item %d: %w", i, errNoImage)
			}
			sb.WriteString(item.Image.ASCII())
		default:
			if _, err := item.encode(); err != nil {
				return "", fmt.Errorf("failed to render item %d: %w", i, err)
			}
		}
	}
	return sb.String(), nil
}

func (it Item) encode() ([]byte, error) {
	switch it.Kind {
	case KindDirective:
		b := Encode(it.Directive)
		if b == nil {
			return nil, fmt.Errorf("unknown directive %d", int(it.Directive))
		}
		return b, nil
	case KindText:
		return []byte(it.Text), nil
	case KindImage:
		if it.Image == nil {
			return nil, errNoImage
		}
		return it.Image.Bitmap().Bytes(), nil
	case KindQRCode:
		return nil, model.NewError(model.ErrUnsupportedFeature, "", "encode qrcode", nil)
	default:
		return nil, fmt.Errorf("unknown item kind %q", it.Kind)
	}
}
