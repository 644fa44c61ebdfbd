package dto

import (
	"time"

	domainproduct "equiprent/internal/domain/product"
	"equiprent/internal/domain/shared/money"
)

type ProductVariant struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name,omitempty"`
	Pricing map[string]money.Money `json:"pricing,omitempty"`
}

type Product struct {
	ID              string                 `json:"id"`
	VendorID        string                 `json:"vendor_id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description,omitempty"`
	Category        string                 `json:"category,omitempty"`
	Stock           int                    `json:"stock"`
	SecurityDeposit money.Money            `json:"security_deposit"`
	Pricing         map[string]money.Money `json:"pricing"`
	Variants        []ProductVariant       `json:"variants,omitempty"`
	Images          []string               `json:"images,omitempty"`
	Published       bool                   `json:"published"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type ProductList struct {
	Items []Product `json:"items"`
	Total int       `json:"total"`
}

func mapPricing(p domainproduct.Pricing) map[string]money.Money {
	if len(p) == 0 {
		return nil
	}
	out := make(map[string]money.Money, len(p))
	for k, v := range p {
		out[string(k)] = v
	}
	return out
}

func MapProduct(p *domainproduct.Product) Product {
	if p == nil {
		return Product{}
	}
	variants := make([]ProductVariant, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, ProductVariant{ID: v.ID, Name: v.Name, Pricing: mapPricing(v.Pricing)})
	}
	return Product{
		ID:              string(p.ID),
		VendorID:        p.VendorID,
		Name:            p.Name,
		Description:     p.Description,
		Category:        p.Category,
		Stock:           p.Stock,
		SecurityDeposit: p.SecurityDeposit,
		Pricing:         mapPricing(p.Pricing),
		Variants:        variants,
		Images:          append([]string(nil), p.Images...),
		Published:       p.Published,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func MapProductList(items []*domainproduct.Product) ProductList {
	out := ProductList{Items: make([]Product, 0, len(items))}
	for _, p := range items {
		out.Items = append(out.Items, MapProduct(p))
	}
	out.Total = len(out.Items)
	return out
}
