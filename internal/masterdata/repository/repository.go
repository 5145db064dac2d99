package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 主数据仓库集合
type Repositories struct {
	Product  *ProductRepository
	Supplier *SupplierRepository
}

// NewRepositories 创建主数据仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Product:  NewProductRepository(db),
		Supplier: NewSupplierRepository(db),
	}
}
