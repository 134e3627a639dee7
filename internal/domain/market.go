package domain

// Market is a catalog entry for a trading market.
type Market struct {
	CatalogModel
	Name     string `gorm:"size:150;not null" json:"name"`
	Code     string `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Region   string `gorm:"size:50;index" json:"region"`
	Priority int    `gorm:"not null;default:0" json:"priority"`
}
