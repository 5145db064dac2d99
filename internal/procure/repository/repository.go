package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 采购工作流仓库集合
type Repositories struct {
	Order      *OrderRepository
	Split      *SplitRepository
	Receipt    *ReceiptRepository
	Suggestion *SuggestionRepository
	Template   *TemplateRepository
}

// NewRepositories 创建采购工作流仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:      NewOrderRepository(db),
		Split:      NewSplitRepository(db),
		Receipt:    NewReceiptRepository(db),
		Suggestion: NewSuggestionRepository(db),
		Template:   NewTemplateRepository(db),
	}
}
