package repository

import (
	"context"
	"errors"

	"github.com/plumped/InventoryPulse-sub000/internal/masterdata/entity"
	"gorm.io/gorm"
)

// ProductRepository 产品仓库
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindByID 根据ID查找产品
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var product entity.Product
	err := r.db.WithContext(ctx).
		Preload("Tax").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindBySKU 根据SKU查找产品
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	var product entity.Product
	err := r.db.WithContext(ctx).
		Preload("Tax").
		Where("sku = ?", sku).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindWithMinimumStock 查找设置了最低库存的在售产品
func (r *ProductRepository) FindWithMinimumStock(ctx context.Context) ([]entity.Product, error) {
	var products []entity.Product
	err := r.db.WithContext(ctx).
		Where("minimum_stock > 0 AND is_active = ?", true).
		Order("sku ASC").
		Find(&products).Error
	return products, err
}

// DefaultTax 查找默认税率（第一个启用的）
func (r *ProductRepository) DefaultTax(ctx context.Context) (*entity.Tax, error) {
	var tax entity.Tax
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("is_default DESC, created_at ASC").
		First(&tax).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tax, nil
}

// DefaultCurrency 查找默认币种
func (r *ProductRepository) DefaultCurrency(ctx context.Context) (*entity.Currency, error) {
	var currency entity.Currency
	err := r.db.WithContext(ctx).
		Order("is_default DESC, created_at ASC").
		First(&currency).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &currency, nil
}

// Create 创建产品
func (r *ProductRepository) Create(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}
