package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainquotation "equiprent/internal/domain/quotation"
	"equiprent/internal/domain/shared/money"
)

const quotationsCollection = "agg_quotation"

type QuotationRepository struct {
	col *mongo.Collection
}

func NewQuotationRepository(db *mongo.Database) *QuotationRepository {
	return &QuotationRepository{col: db.Collection(quotationsCollection)}
}

// EnsureIndexes creates the unique quotation number index and the list/expiry indexes.
func (r *QuotationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "valid_until", Value: 1}}},
	})
	return err
}

func (r *QuotationRepository) ByID(ctx context.Context, id domainquotation.ID) (*domainquotation.Quotation, error) {
	var doc quotationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainquotation.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save validates q and replaces the whole document, so lines and totals are written atomically.
func (r *QuotationRepository) Save(ctx context.Context, q *domainquotation.Quotation) error {
	if q == nil || q.ID == "" {
		return domainquotation.ErrNotFound
	}
	if err := domainquotation.Validate(q); err != nil {
		return err
	}
	doc := newQuotationDocument(q)
	doc.Version = q.Version + 1
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainquotation.ErrDuplicateNumber
		}
		return err
	}
	q.Version = doc.Version
	return nil
}

func (r *QuotationRepository) Delete(ctx context.Context, id domainquotation.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainquotation.ErrNotFound
	}
	return nil
}

func (r *QuotationRepository) List(ctx context.Context, filter domainquotation.ListFilter) ([]*domainquotation.Quotation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := r.col.Find(ctx, quotationFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*domainquotation.Quotation, 0)
	for cur.Next(ctx) {
		var doc quotationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func quotationFilter(f domainquotation.ListFilter) bson.M {
	query := bson.M{}
	if f.CustomerID != "" {
		query["customer_id"] = f.CustomerID
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		query["status"] = bson.M{"$in": statuses}
	}
	if !f.ValidBefore.IsZero() {
		query["valid_until"] = bson.M{"$ne": nil, "$lt": f.ValidBefore.UTC()}
	}
	return query
}

type quotationDocument struct {
	ID            string         `bson:"_id"`
	Number        string         `bson:"number"`
	CustomerID    string         `bson:"customer_id"`
	Status        string         `bson:"status"`
	Lines         []lineDocument `bson:"lines"`
	TotalAmount   money.Money    `bson:"total_amount"`
	DepositAmount money.Money    `bson:"deposit_amount"`
	Notes         string         `bson:"notes,omitempty"`
	ValidUntil    *time.Time     `bson:"valid_until"`
	CreatedAt     time.Time      `bson:"created_at"`
	UpdatedAt     time.Time      `bson:"updated_at"`
	Version       int64          `bson:"version"`
}

type lineDocument struct {
	ProductID     string      `bson:"product_id"`
	VariantID     string      `bson:"variant_id,omitempty"`
	Quantity      int         `bson:"quantity"`
	RentalStart   time.Time   `bson:"rental_start_date"`
	RentalEnd     time.Time   `bson:"rental_end_date"`
	DurationType  string      `bson:"rental_duration_type"`
	DurationValue *float64    `bson:"rental_duration_value,omitempty"`
	UnitPrice     money.Money `bson:"unit_price"`
	Subtotal      money.Money `bson:"subtotal"`
}

func encodeLines(in []domainquotation.Line) []lineDocument {
	lines := make([]lineDocument, 0, len(in))
	for _, l := range in {
		lines = append(lines, lineDocument{
			ProductID:     l.ProductID,
			VariantID:     l.VariantID,
			Quantity:      l.Quantity,
			RentalStart:   l.RentalStart.UTC(),
			RentalEnd:     l.RentalEnd.UTC(),
			DurationType:  string(l.DurationType),
			DurationValue: l.DurationValue,
			UnitPrice:     l.UnitPrice,
			Subtotal:      l.Subtotal,
		})
	}
	return lines
}

func decodeLines(in []lineDocument) []domainquotation.Line {
	lines := make([]domainquotation.Line, 0, len(in))
	for _, l := range in {
		lines = append(lines, domainquotation.Line{
			ProductID:     l.ProductID,
			VariantID:     l.VariantID,
			Quantity:      l.Quantity,
			RentalStart:   l.RentalStart.UTC(),
			RentalEnd:     l.RentalEnd.UTC(),
			DurationType:  domainquotation.DurationType(l.DurationType),
			DurationValue: l.DurationValue,
			UnitPrice:     l.UnitPrice,
			Subtotal:      l.Subtotal,
		})
	}
	return lines
}

func newQuotationDocument(q *domainquotation.Quotation) quotationDocument {
	return quotationDocument{
		ID:            string(q.ID),
		Number:        q.Number,
		CustomerID:    q.CustomerID,
		Status:        string(q.Status),
		Lines:         encodeLines(q.Lines),
		TotalAmount:   q.TotalAmount,
		DepositAmount: q.DepositAmount,
		Notes:         q.Notes,
		ValidUntil:    q.ValidUntil,
		CreatedAt:     q.CreatedAt.UTC(),
		UpdatedAt:     q.UpdatedAt.UTC(),
		Version:       q.Version,
	}
}

func (d quotationDocument) toAggregate() *domainquotation.Quotation {
	q := &domainquotation.Quotation{
		ID:            domainquotation.ID(d.ID),
		Number:        d.Number,
		CustomerID:    d.CustomerID,
		Status:        domainquotation.Status(d.Status),
		Lines:         decodeLines(d.Lines),
		TotalAmount:   d.TotalAmount,
		DepositAmount: d.DepositAmount,
		Notes:         d.Notes,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
	if d.ValidUntil != nil {
		v := d.ValidUntil.UTC()
		q.ValidUntil = &v
	}
	return q
}

var _ domainquotation.Repository = (*QuotationRepository)(nil)
