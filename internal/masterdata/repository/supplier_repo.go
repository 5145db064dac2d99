package repository

import (
	"context"
	"errors"

	"github.com/plumped/InventoryPulse-sub000/internal/masterdata/entity"
	"gorm.io/gorm"
)

// SupplierRepository 供应商仓库
type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// FindByID 根据ID查找供应商
func (r *SupplierRepository) FindByID(ctx context.Context, id string) (*entity.Supplier, error) {
	var supplier entity.Supplier
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// FindByName 根据名称查找供应商（批量导入按名称匹配）
func (r *SupplierRepository) FindByName(ctx context.Context, name string) (*entity.Supplier, error) {
	var supplier entity.Supplier
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&supplier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// FindSupplierProduct 查找供应商-产品关联
func (r *SupplierRepository) FindSupplierProduct(ctx context.Context, supplierID, productID string) (*entity.SupplierProduct, error) {
	var sp entity.SupplierProduct
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND product_id = ?", supplierID, productID).
		First(&sp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sp, nil
}

// PreferredSupplierProduct 查找产品的首选供应关系。
// 优先取标记为首选的记录，否则取第一个可用的。
func (r *SupplierRepository) PreferredSupplierProduct(ctx context.Context, productID string) (*entity.SupplierProduct, error) {
	var sp entity.SupplierProduct
	err := r.db.WithContext(ctx).
		Joins("JOIN suppliers ON suppliers.id = supplier_products.supplier_id").
		Where("supplier_products.product_id = ? AND suppliers.is_active = ? AND suppliers.deleted_at IS NULL", productID, true).
		Order("supplier_products.is_preferred DESC, supplier_products.created_at ASC").
		First(&sp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sp, nil
}

// Create 创建供应商
func (r *SupplierRepository) Create(ctx context.Context, supplier *entity.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

// CreateSupplierProduct 创建供应商-产品关联
func (r *SupplierRepository) CreateSupplierProduct(ctx context.Context, sp *entity.SupplierProduct) error {
	return r.db.WithContext(ctx).Create(sp).Error
}
