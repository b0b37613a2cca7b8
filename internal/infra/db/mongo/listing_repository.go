package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "renthub/internal/domain/booking"
	domainlisting "renthub/internal/domain/listing"
	domainpricing "renthub/internal/domain/pricing"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("agg_listing")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlisting.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	doc := newListingDocument(l)
	filter := bson.M{"_id": doc.ID, "version": l.Version}
	doc.Version = l.Version + 1
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConflict
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConflict
	}
	l.Version = doc.Version
	return nil
}

type listingDocument struct {
	ID            string               `bson:"_id"`
	OwnerID       string               `bson:"owner_id"`
	Title         string               `bson:"title"`
	Description   string               `bson:"description"`
	State         string               `bson:"state"`
	Pricing       domainpricing.Config `bson:"pricing"`
	PolicyID      string               `bson:"policy_id"`
	RefundPercent int                  `bson:"refund_percent"`
	CreatedAt     int64                `bson:"created_at"`
	UpdatedAt     int64                `bson:"updated_at"`
	Version       int64                `bson:"version"`
}

func newListingDocument(l *domainlisting.Listing) listingDocument {
	return listingDocument{
		ID:            string(l.ID),
		OwnerID:       l.OwnerID,
		Title:         l.Title,
		Description:   l.Description,
		State:         string(l.State),
		Pricing:       l.Pricing,
		PolicyID:      l.Cancellation.PolicyID,
		RefundPercent: l.Cancellation.RefundPercent,
		CreatedAt:     l.CreatedAt.UnixMilli(),
		UpdatedAt:     l.UpdatedAt.UnixMilli(),
		Version:       l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlisting.Listing {
	return &domainlisting.Listing{
		ID:          domainlisting.ListingID(d.ID),
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		Description: d.Description,
		State:       domainlisting.State(d.State),
		Pricing:     d.Pricing,
		Cancellation: domainlisting.CancellationPolicy{
			PolicyID:      d.PolicyID,
			RefundPercent: d.RefundPercent,
		},
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(d.UpdatedAt).UTC(),
		Version:   d.Version,
	}
}
