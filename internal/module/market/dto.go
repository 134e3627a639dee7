package market

import "github.com/simp-lee/catalog/internal/domain"

// CreateRequest is the body of a market create.
type CreateRequest struct {
	UUID     string `json:"uuid" binding:"omitempty,uuid"`
	Name     string `json:"name" binding:"required,min=2,max=150"`
	Code     string `json:"code" binding:"required,max=20"`
	Region   string `json:"region" binding:"max=50"`
	Priority int    `json:"priority" binding:"gte=0"`
}

// Entity builds the market from the request.
func (r CreateRequest) Entity() *domain.Market {
	m := &domain.Market{
		Name:     r.Name,
		Code:     r.Code,
		Region:   r.Region,
		Priority: r.Priority,
	}
	m.UUID = r.UUID
	return m
}

// UpdateRequest is the body of a market update. Omitted fields are left as they are.
type UpdateRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=150"`
	Code     *string `json:"code" binding:"omitempty,max=20"`
	Region   *string `json:"region" binding:"omitempty,max=50"`
	Priority *int    `json:"priority" binding:"omitempty,gte=0"`
}

// Attributes returns the columns to update, keyed by column name.
func (r UpdateRequest) Attributes() map[string]any {
	attrs := make(map[string]any, 4)
	if r.Name != nil {
		attrs["name"] = *r.Name
	}
	if r.Code != nil {
		attrs["code"] = *r.Code
	}
	if r.Region != nil {
		attrs["region"] = *r.Region
	}
	if r.Priority != nil {
		attrs["priority"] = *r.Priority
	}
	return attrs
}
