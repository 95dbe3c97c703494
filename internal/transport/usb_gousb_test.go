package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"printer-service/internal/config"
)

func TestGousbBackendKnownProducts(t *testing.T) {
	b := NewGousbBackend(0, 0, []config.USBProduct{
		{VendorID: 0x1FC9, ProductID: 0x2016, Vendor: "Xprinter", Model: "XP-58IIH"},
	}, zap.NewNop())

	assert.True(t, b.known.IsKnownVendor(0x1FC9))
	assert.Equal(t, "Xprinter XP-58IIH", b.known.DisplayName(0x1FC9, 0x2016))
	assert.Equal(t, "Seiko Epson Corporation TM-T88V", b.known.DisplayName(0x04B8, 0x0203))
}
