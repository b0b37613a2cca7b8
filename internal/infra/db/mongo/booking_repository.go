package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "renthub/internal/domain/booking"
	domainlisting "renthub/internal/domain/listing"
	domainpricing "renthub/internal/domain/pricing"
	domainrange "renthub/internal/domain/shared/daterange"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("agg_booking")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "state", Value: 1}, {Key: "updated_at", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save performs a conditional update on the version read at load time. The
// status change and the history append land in a single document write, so
// they are atomic, and a losing concurrent writer observes ErrConflict.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConflict
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConflict
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) FindByStatusUpdatedBefore(ctx context.Context, status domainbooking.Status, cutoff time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{"state": string(status), "updated_at": bson.M{"$lt": cutoff.UTC().UnixMilli()}}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode booking: %w", err)
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type historyDocument struct {
	Status   string            `bson:"status"`
	ActorID  string            `bson:"actor_id"`
	Role     string            `bson:"role"`
	Metadata map[string]string `bson:"metadata,omitempty"`
	At       int64             `bson:"at"`
}

type bookingDocument struct {
	ID        string                       `bson:"_id"`
	ListingID string                       `bson:"listing_id"`
	RenterID  string                       `bson:"renter_id"`
	OwnerID   string                       `bson:"owner_id"`
	Range     rangeDocument                `bson:"range"`
	State     string                       `bson:"state"`
	Price     domainpricing.Breakdown      `bson:"price"`
	Policy    domainbooking.PolicySnapshot `bson:"policy"`
	History   []historyDocument            `bson:"history"`
	CreatedAt int64                        `bson:"created_at"`
	UpdatedAt int64                        `bson:"updated_at"`
	Version   int64                        `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	history := make([]historyDocument, 0, len(b.History))
	for _, h := range b.History {
		history = append(history, historyDocument{
			Status:   string(h.Status),
			ActorID:  h.ActorID,
			Role:     string(h.Role),
			Metadata: h.Metadata,
			At:       h.At.UnixMilli(),
		})
	}
	return bookingDocument{
		ID:        string(b.ID),
		ListingID: string(b.ListingID),
		RenterID:  b.RenterID,
		OwnerID:   b.OwnerID,
		Range:     rangeDocument{Start: b.Range.Start.UnixMilli(), End: b.Range.End.UnixMilli()},
		State:     string(b.Status),
		Price:     b.Price,
		Policy:    b.Policy,
		History:   history,
		CreatedAt: b.CreatedAt.UnixMilli(),
		UpdatedAt: b.UpdatedAt.UnixMilli(),
		Version:   b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	history := make([]domainbooking.HistoryEntry, 0, len(d.History))
	for _, h := range d.History {
		history = append(history, domainbooking.HistoryEntry{
			Status:   domainbooking.Status(h.Status),
			ActorID:  h.ActorID,
			Role:     domainbooking.Role(h.Role),
			Metadata: h.Metadata,
			At:       timestampToTime(h.At),
		})
	}
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		ListingID: domainlisting.ListingID(d.ListingID),
		RenterID:  d.RenterID,
		OwnerID:   d.OwnerID,
		Range:     domainrange.DateRange{Start: timestampToTime(d.Range.Start), End: timestampToTime(d.Range.End)},
		Status:    domainbooking.Status(d.State),
		Price:     d.Price,
		Policy:    d.Policy,
		History:   history,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
