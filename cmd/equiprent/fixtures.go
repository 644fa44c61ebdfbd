package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	domainproduct "equiprent/internal/domain/product"
	"equiprent/internal/domain/shared/money"
)

type productFixture struct {
	ID              string                  `json:"id"`
	VendorID        string                  `json:"vendor_id"`
	Name            string                  `json:"name"`
	Description     string                  `json:"description"`
	Category        string                  `json:"category"`
	Stock           int                     `json:"stock"`
	Currency        string                  `json:"currency"`
	SecurityDeposit int64                   `json:"security_deposit"`
	Pricing         map[string]int64        `json:"pricing"`
	Variants        []productVariantFixture `json:"variants"`
	Images          []string                `json:"images"`
	Unpublished     bool                    `json:"unpublished"`
}

type productVariantFixture struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Pricing map[string]int64 `json:"pricing"`
}

// loadProductFixtures imports published products from a JSON array. Invalid entries are
// logged and skipped; a missing file is not an error.
func loadProductFixtures(ctx context.Context, repo domainproduct.Repository, path string, logger *slog.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("product fixtures file not found, skipping", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []productFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	imported := 0
	for _, fx := range fixtures {
		p, err := fx.toProduct(now)
		if err != nil {
			logger.Error("fixture invalid", "product_id", fx.ID, "error", err)
			continue
		}
		if err := repo.Save(ctx, p); err != nil {
			return imported, fmt.Errorf("store fixture %s: %w", fx.ID, err)
		}
		imported++
	}
	return imported, nil
}

func (fx productFixture) toProduct(now time.Time) (*domainproduct.Product, error) {
	pricing, err := fixturePricing(fx.Pricing, fx.Currency)
	if err != nil {
		return nil, err
	}
	variants := make([]domainproduct.Variant, 0, len(fx.Variants))
	for _, v := range fx.Variants {
		vp, err := fixturePricing(v.Pricing, fx.Currency)
		if err != nil {
			return nil, err
		}
		variants = append(variants, domainproduct.Variant{ID: v.ID, Name: v.Name, Pricing: vp})
	}
	deposit, err := money.New(fx.SecurityDeposit, fx.Currency)
	if err != nil {
		return nil, err
	}
	p, err := domainproduct.New(domainproduct.CreateParams{
		ID:       domainproduct.ID(fx.ID),
		VendorID: fx.VendorID,
		Params: domainproduct.Params{
			Name:            fx.Name,
			Description:     fx.Description,
			Category:        fx.Category,
			Stock:           fx.Stock,
			SecurityDeposit: deposit,
			Pricing:         pricing,
			Variants:        variants,
		},
		Now: now,
	})
	if err != nil {
		return nil, err
	}
	for _, img := range fx.Images {
		p.AddImage(img, now)
	}
	if !fx.Unpublished {
		p.Publish(now)
	}
	return p, nil
}

func fixturePricing(raw map[string]int64, currency string) (domainproduct.Pricing, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(domainproduct.Pricing, len(raw))
	for kind, amount := range raw {
		m, err := money.New(amount, currency)
		if err != nil {
			return nil, err
		}
		out[domainproduct.RateType(kind)] = m
	}
	return out, nil
}
