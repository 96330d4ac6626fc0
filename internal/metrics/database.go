package metrics

import (
	"github.com/ksred/vendor-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// withTransaction runs fn against a transactional copy of the database, so a
// recompute's order scan, vendor update and history insert commit as one unit
func (d *Database) withTransaction(fn func(tx *Database) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Database{db: tx})
	})
}

func (d *Database) GetVendorByID(vendorID uint) (*types.Vendor, error) {
	var vendor types.Vendor
	if err := d.db.First(&vendor, vendorID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (d *Database) GetOrdersForVendor(vendorID uint) ([]types.PurchaseOrder, error) {
	var orders []types.PurchaseOrder
	if err := d.db.Where("vendor_id = ?", vendorID).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *Database) CreateHistory(history *types.HistoricalPerformance) error {
	return d.db.Create(history).Error
}

func (d *Database) SaveVendor(vendor *types.Vendor) error {
	return d.db.Save(vendor).Error
}
