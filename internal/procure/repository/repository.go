package repository

import "gorm.io/gorm"

// Repositories 采购模块仓库集合
type Repositories struct {
	CR         *CRRepository
	POChild    *POChildRepository
	Vendor     *VendorRepository
	Selection  *SelectionRepository
	History    *HistoryRepository
	Assignment *AssignmentRepository
	User       *UserRepository
	Catalog    *CatalogRepository
}

// NewRepositories 创建采购模块仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		CR:         NewCRRepository(db),
		POChild:    NewPOChildRepository(db),
		Vendor:     NewVendorRepository(db),
		Selection:  NewSelectionRepository(db),
		History:    NewHistoryRepository(db),
		Assignment: NewAssignmentRepository(db),
		User:       NewUserRepository(db),
		Catalog:    NewCatalogRepository(db),
	}
}
