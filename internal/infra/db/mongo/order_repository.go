package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainorder "equiprent/internal/domain/order"
	domainquotation "equiprent/internal/domain/quotation"
	"equiprent/internal/domain/shared/money"
)

const ordersCollection = "agg_order"

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(ordersCollection)}
}

func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "quotation_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *OrderRepository) ByID(ctx context.Context, id domainorder.ID) (*domainorder.Order, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *OrderRepository) ByQuotation(ctx context.Context, id domainquotation.ID) (*domainorder.Order, error) {
	return r.findOne(ctx, bson.M{"quotation_id": string(id)})
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*domainorder.Order, error) {
	var doc orderDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainorder.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *OrderRepository) Create(ctx context.Context, o *domainorder.Order) error {
	if _, err := r.col.InsertOne(ctx, newOrderDocument(o)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainorder.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, filter domainorder.ListFilter) ([]*domainorder.Order, error) {
	query := bson.M{}
	if filter.CustomerID != "" {
		query["customer_id"] = filter.CustomerID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
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

	out := make([]*domainorder.Order, 0)
	for cur.Next(ctx) {
		var doc orderDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type orderDocument struct {
	ID              string         `bson:"_id"`
	QuotationID     string         `bson:"quotation_id"`
	QuotationNumber string         `bson:"quotation_number"`
	CustomerID      string         `bson:"customer_id"`
	Lines           []lineDocument `bson:"lines"`
	Total           money.Money    `bson:"total_amount"`
	Deposit         money.Money    `bson:"deposit_amount"`
	Status          string         `bson:"status"`
	CreatedAt       time.Time      `bson:"created_at"`
}

func newOrderDocument(o *domainorder.Order) orderDocument {
	return orderDocument{
		ID:              string(o.ID),
		QuotationID:     string(o.QuotationID),
		QuotationNumber: o.QuotationNumber,
		CustomerID:      o.CustomerID,
		Lines:           encodeLines(o.Lines),
		Total:           o.Total,
		Deposit:         o.Deposit,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.UTC(),
	}
}

func (d orderDocument) toAggregate() *domainorder.Order {
	return &domainorder.Order{
		ID:              domainorder.ID(d.ID),
		QuotationID:     domainquotation.ID(d.QuotationID),
		QuotationNumber: d.QuotationNumber,
		CustomerID:      d.CustomerID,
		Lines:           decodeLines(d.Lines),
		Total:           d.Total,
		Deposit:         d.Deposit,
		Status:          domainorder.Status(d.Status),
		CreatedAt:       d.CreatedAt.UTC(),
	}
}

var _ domainorder.Repository = (*OrderRepository)(nil)
