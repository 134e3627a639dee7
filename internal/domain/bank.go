package domain

// Bank is a catalog entry for a bank. Branches are loaded on demand.
type Bank struct {
	CatalogModel
	Name      string       `gorm:"size:150;not null" json:"name"`
	Code      string       `gorm:"size:20;uniqueIndex;not null" json:"code"`
	SwiftCode string       `gorm:"size:11" json:"swift_code"`
	Country   string       `gorm:"size:2;index" json:"country"`
	Branches  []BankBranch `gorm:"foreignKey:BankID" json:"branches,omitempty"`
}

// BankBranch is a branch office of a Bank.
type BankBranch struct {
	BaseModel
	BankID uint   `gorm:"not null;index" json:"bank_id"`
	Name   string `gorm:"size:150;not null" json:"name"`
	City   string `gorm:"size:100" json:"city"`
}
