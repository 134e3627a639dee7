package bank

import "github.com/simp-lee/catalog/internal/domain"

// BranchRequest is a branch created together with its bank.
type BranchRequest struct {
	Name string `json:"name" binding:"required,min=2,max=150"`
	City string `json:"city" binding:"max=100"`
}

// CreateRequest is the body of a bank create.
type CreateRequest struct {
	UUID     string          `json:"uuid" binding:"omitempty,uuid"`
	Name     string          `json:"name" binding:"required,min=2,max=150"`
	Code     string          `json:"code" binding:"required,max=20"`
	Swift    string          `json:"swift" binding:"omitempty,alphanum,len=8|len=11"`
	Country  string          `json:"country" binding:"omitempty,iso3166_1_alpha2"`
	Branches []BranchRequest `json:"branches" binding:"omitempty,dive"`
}

// Entity builds the bank and its branches from the request.
func (r CreateRequest) Entity() *domain.Bank {
	b := &domain.Bank{
		Name:      r.Name,
		Code:      r.Code,
		SwiftCode: r.Swift,
		Country:   r.Country,
	}
	b.UUID = r.UUID
	for _, br := range r.Branches {
		b.Branches = append(b.Branches, domain.BankBranch{Name: br.Name, City: br.City})
	}
	return b
}

// UpdateRequest is the body of a bank update. Omitted fields are left as they are.
type UpdateRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=2,max=150"`
	Code    *string `json:"code" binding:"omitempty,max=20"`
	Swift   *string `json:"swift" binding:"omitempty,alphanum,len=8|len=11"`
	Country *string `json:"country" binding:"omitempty,iso3166_1_alpha2"`
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
	if r.Swift != nil {
		attrs["swift_code"] = *r.Swift
	}
	if r.Country != nil {
		attrs["country"] = *r.Country
	}
	return attrs
}
