package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainproduct "equiprent/internal/domain/product"
	"equiprent/internal/domain/shared/money"
)

const productsCollection = "agg_product"

type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(productsCollection)}
}

func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "published", Value: 1}, {Key: "category", Value: 1}, {Key: "name", Value: 1}}},
	})
	return err
}

func (r *ProductRepository) ByID(ctx context.Context, id domainproduct.ID) (*domainproduct.Product, error) {
	var doc productDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproduct.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domainproduct.Product) error {
	if p == nil || p.ID == "" {
		return domainproduct.ErrIDRequired
	}
	doc := newProductDocument(p)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *ProductRepository) List(ctx context.Context, filter domainproduct.ListFilter) ([]*domainproduct.Product, error) {
	query := bson.M{}
	if filter.VendorID != "" {
		query["vendor_id"] = filter.VendorID
	}
	if c := strings.ToLower(strings.TrimSpace(filter.Category)); c != "" {
		query["category"] = c
	}
	if filter.PublishedOnly {
		query["published"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*domainproduct.Product, 0)
	for cur.Next(ctx) {
		var doc productDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type productDocument struct {
	ID              string                 `bson:"_id"`
	VendorID        string                 `bson:"vendor_id"`
	Name            string                 `bson:"name"`
	Description     string                 `bson:"description,omitempty"`
	Category        string                 `bson:"category,omitempty"`
	Stock           int                    `bson:"stock"`
	SecurityDeposit money.Money            `bson:"security_deposit"`
	Pricing         map[string]money.Money `bson:"pricing"`
	Variants        []variantDocument      `bson:"variants,omitempty"`
	Images          []string               `bson:"images,omitempty"`
	Published       bool                   `bson:"published"`
	CreatedAt       time.Time              `bson:"created_at"`
	UpdatedAt       time.Time              `bson:"updated_at"`
}

type variantDocument struct {
	ID      string                 `bson:"id"`
	Name    string                 `bson:"name,omitempty"`
	Pricing map[string]money.Money `bson:"pricing,omitempty"`
}

func encodePricing(p domainproduct.Pricing) map[string]money.Money {
	if len(p) == 0 {
		return nil
	}
	out := make(map[string]money.Money, len(p))
	for k, v := range p {
		out[string(k)] = v
	}
	return out
}

func decodePricing(raw map[string]money.Money) domainproduct.Pricing {
	if len(raw) == 0 {
		return nil
	}
	out := make(domainproduct.Pricing, len(raw))
	for k, v := range raw {
		out[domainproduct.RateType(k)] = v
	}
	return out
}

func newProductDocument(p *domainproduct.Product) productDocument {
	variants := make([]variantDocument, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, variantDocument{ID: v.ID, Name: v.Name, Pricing: encodePricing(v.Pricing)})
	}
	return productDocument{
		ID:              string(p.ID),
		VendorID:        p.VendorID,
		Name:            p.Name,
		Description:     p.Description,
		Category:        p.Category,
		Stock:           p.Stock,
		SecurityDeposit: p.SecurityDeposit,
		Pricing:         encodePricing(p.Pricing),
		Variants:        variants,
		Images:          append([]string(nil), p.Images...),
		Published:       p.Published,
		CreatedAt:       p.CreatedAt.UTC(),
		UpdatedAt:       p.UpdatedAt.UTC(),
	}
}

func (d productDocument) toAggregate() *domainproduct.Product {
	variants := make([]domainproduct.Variant, 0, len(d.Variants))
	for _, v := range d.Variants {
		variants = append(variants, domainproduct.Variant{ID: v.ID, Name: v.Name, Pricing: decodePricing(v.Pricing)})
	}
	return &domainproduct.Product{
		ID:              domainproduct.ID(d.ID),
		VendorID:        d.VendorID,
		Name:            d.Name,
		Description:     d.Description,
		Category:        d.Category,
		Stock:           d.Stock,
		SecurityDeposit: d.SecurityDeposit,
		Pricing:         decodePricing(d.Pricing),
		Variants:        variants,
		Images:          d.Images,
		Published:       d.Published,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

var _ domainproduct.Repository = (*ProductRepository)(nil)
