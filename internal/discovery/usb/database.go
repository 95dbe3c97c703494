// internal/discovery/usb/database.go
package usb

import (
	"fmt"

	"github.com/google/gousb"
)

// DeviceDatabase names known receipt printer vendors and models
type DeviceDatabase struct {
	vendors map[gousb.ID]*VendorInfo
}

// VendorInfo contains vendor-specific information
type VendorInfo struct {
	Name     string
	products map[gousb.ID]string
}

// NewDeviceDatabase creates and initializes the device database
func NewDeviceDatabase() *DeviceDatabase {
	db := &DeviceDatabase{
		vendors: make(map[gousb.ID]*VendorInfo),
	}
	db.initializeDatabase()
	return db
}

func (db *DeviceDatabase) initializeDatabase() {
	db.AddVendor(0x04B8, "Seiko Epson Corporation")
	db.AddProduct(0x04B8, 0x0202, "TM-T88IV")
	db.AddProduct(0x04B8, 0x0203, "TM-T88V")
	db.AddProduct(0x04B8, 0x0E15, "TM-T20II")
	db.AddProduct(0x04B8, 0x0E28, "TM-T20III")

	db.AddVendor(0x0519, "Star Micronics Co., Ltd.")
	db.AddProduct(0x0519, 0x0003, "TSP100")
	db.AddProduct(0x0519, 0x0047, "mC-Print3")

	db.AddVendor(0x1D90, "Citizen Systems Japan Co., Ltd.")
	db.AddProduct(0x1D90, 0x2060, "CT-S310II")

	db.AddVendor(0x1504, "BIXOLON Co., Ltd.")
	db.AddProduct(0x1504, 0x0006, "SRP-350plusIII")

	// Generic 58mm/80mm thermal printers
	db.AddVendor(0x0416, "Winbond Electronics Corp.")
	db.AddProduct(0x0416, 0x5011, "POS-58")
	db.AddVendor(0x0483, "STMicroelectronics")
	db.AddProduct(0x0483, 0x5743, "POS-80")
	db.AddVendor(0x0FE6, "ICS Advent")
	db.AddProduct(0x0FE6, 0x811E, "Thermal Receipt Printer")
	db.AddVendor(0x28E9, "GigaDevice Semiconductor Inc.")
	db.AddVendor(0x6868, "Zjiang")
	db.AddProduct(0x6868, 0x0200, "ZJ-5890")
}

// IsKnownVendor reports whether the vendor ships receipt printers
func (db *DeviceDatabase) IsKnownVendor(vendorID gousb.ID) bool {
	_, ok := db.vendors[vendorID]
	return ok
}

// GetVendorInfo returns vendor information
func (db *DeviceDatabase) GetVendorInfo(vendorID gousb.ID) *VendorInfo {
	return db.vendors[vendorID]
}

// AddVendor registers a vendor. Existing products are kept.
func (db *DeviceDatabase) AddVendor(vendorID gousb.ID, name string) {
	if v, ok := db.vendors[vendorID]; ok {
		v.Name = name
		return
	}
	db.vendors[vendorID] = &VendorInfo{Name: name, products: make(map[gousb.ID]string)}
}

// AddProduct registers a model name under a known vendor
func (db *DeviceDatabase) AddProduct(vendorID, productID gousb.ID, model string) {
	v, ok := db.vendors[vendorID]
	if !ok {
		return
	}
	v.products[productID] = model
}

// Register adds a model, creating its vendor when needed. An empty vendor
// name keeps the existing one.
func (db *DeviceDatabase) Register(vendorID, productID gousb.ID, vendor, model string) {
	if vendor != "" || !db.IsKnownVendor(vendorID) {
		if vendor == "" {
			vendor = fmt.Sprintf("Vendor %04x", uint16(vendorID))
		}
		db.AddVendor(vendorID, vendor)
	}
	db.AddProduct(vendorID, productID, model)
}

// DisplayName builds a human readable label for a vendor/product pair,
// falling back to the hex ids.
func (db *DeviceDatabase) DisplayName(vendorID, productID gousb.ID) string {
	v, ok := db.vendors[vendorID]
	if !ok {
		return fmt.Sprintf("USB printer %04x:%04x", uint16(vendorID), uint16(productID))
	}
	if model, ok := v.products[productID]; ok {
		return fmt.Sprintf("%s %s", v.Name, model)
	}
	return fmt.Sprintf("%s %04x", v.Name, uint16(productID))
}
