package order

import (
	"errors"

	"github.com/ksred/vendor-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// withTransaction runs fn against a transactional copy of the database
func (d *Database) withTransaction(fn func(tx *Database) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Database{db: tx})
	})
}

func (d *Database) GetOrderByPONumber(poNumber string) (*types.PurchaseOrder, error) {
	var po types.PurchaseOrder
	if err := d.db.Where("po_number = ?", poNumber).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &po, nil
}

func (d *Database) ListOrders(vendorCode string) ([]types.PurchaseOrder, error) {
	var orders []types.PurchaseOrder
	query := d.db
	if vendorCode != "" {
		query = query.Where("vendor_code = ?", vendorCode)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *Database) GetOrdersForVendor(vendorID uint) ([]types.PurchaseOrder, error) {
	var orders []types.PurchaseOrder
	if err := d.db.Where("vendor_id = ?", vendorID).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *Database) CreateOrder(po *types.PurchaseOrder) error {
	return d.db.Create(po).Error
}

func (d *Database) SaveOrder(po *types.PurchaseOrder) error {
	return d.db.Save(po).Error
}

func (d *Database) DeleteOrder(po *types.PurchaseOrder) error {
	return d.db.Delete(po).Error
}

func (d *Database) GetVendorByCode(code string) (*types.Vendor, error) {
	var vendor types.Vendor
	if err := d.db.Where("vendor_code = ?", code).First(&vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vendor, nil
}

func (d *Database) GetVendorByID(vendorID uint) (*types.Vendor, error) {
	var vendor types.Vendor
	if err := d.db.First(&vendor, vendorID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (d *Database) SaveVendor(vendor *types.Vendor) error {
	return d.db.Save(vendor).Error
}
