// internal/raster/bitmap.go
package raster

import (
	"encoding/binary"
	"strings"
)

// threshold is the first intensity printed as blank
const threshold = 128

// rasterHeader is GS v 0 in normal density mode
var rasterHeader = []byte{0x1D, 0x76, 0x30, 0x00}

// GS v 0 carries both dimensions as 16-bit little endian values
const (
	maxBandRows   = 0xFFFF
	maxWidthBytes = 0xFFFF
)

// asciiGlyphs runs from darkest to lightest
var asciiGlyphs = []string{"@", "#", "S", "%", "?", "*", "+", ";", ":", ",", "."}

// Bitmap is a 1-bit image packed MSB first, one padded row per scan line
type Bitmap struct {
	WidthBytes int
	Height     int
	Rows       []byte
}

// Bitmap thresholds the image into packed rows
func (img *Image) Bitmap() *Bitmap {
	widthBytes := (img.width + 7) / 8
	rows := make([]byte, widthBytes*img.height)

	for y := 0; y < img.height; y++ {
		line := img.pix[y*img.width : (y+1)*img.width]
		out := rows[y*widthBytes : (y+1)*widthBytes]
		for x, p := range line {
			if p < threshold {
				out[x/8] |= 0x80 >> uint(x%8)
			}
		}
	}

	return &Bitmap{WidthBytes: widthBytes, Height: img.height, Rows: rows}
}

// Bytes returns the GS v 0 command: header, xL xH yL yH, then the rows.
// Images taller than one header allows are split into consecutive bands.
func (b *Bitmap) Bytes() []byte {
	bands := (b.Height + maxBandRows - 1) / maxBandRows
	out := make([]byte, 0, bands*(len(rasterHeader)+4)+len(b.Rows))
	for y := 0; y < b.Height; y += maxBandRows {
		rows := b.Height - y
		if rows > maxBandRows {
			rows = maxBandRows
		}
		out = append(out, rasterHeader...)
		out = binary.LittleEndian.AppendUint16(out, uint16(b.WidthBytes))
		out = binary.LittleEndian.AppendUint16(out, uint16(rows))
		out = append(out, b.Rows[y*b.WidthBytes:(y+rows)*b.WidthBytes]...)
	}
	return out
}

// ASCII renders the image as text art for terminal output
func (img *Image) ASCII() string {
	var sb strings.Builder
	sb.Grow((img.width + 1) * img.height)
	for y := 0; y < img.height; y++ {
		for _, p := range img.pix[y*img.width : (y+1)*img.width] {
			sb.WriteString(asciiGlyphs[int(p)*10/255])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
