package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadimbarashkov/shortify/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const urlCollection = "urls"

type urlRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ShortCode string             `bson:"short_code"`
	TargetURL string             `bson:"target_url"`
	Clicks    int64              `bson:"clicks"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (r *urlRecord) ToURL() *entity.URL {
	return &entity.URL{
		ID:        r.ID.Hex(),
		ShortCode: r.ShortCode,
		TargetURL: r.TargetURL,
		Clicks:    r.Clicks,
		CreatedAt: r.CreatedAt,
	}
}

type URLRepository struct {
	coll *mongo.Collection
}

func NewURLRepository(client *mongo.Client, dbName string) *URLRepository {
	return &URLRepository{
		coll: client.Database(dbName).Collection(urlCollection),
	}
}

// EnsureIndexes creates the unique index on short_code that backs code
// uniqueness, and the created_at index that backs newest-first listings.
func (r *URLRepository) EnsureIndexes(ctx context.Context) error {
	const op = "database.mongo.URLRepository.EnsureIndexes"

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "short_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: failed to create indexes: %w", op, err)
	}

	return nil
}

// Insert stores a new URL record with a zero click total and re-reads it by
// the store-assigned id so the caller gets the record exactly as persisted.
func (r *URLRepository) Insert(ctx context.Context, shortCode, targetURL string) (*entity.URL, error) {
	const op = "database.mongo.URLRepository.Insert"

	res, err := r.coll.InsertOne(ctx, bson.M{
		"short_code": shortCode,
		"target_url": targetURL,
		"clicks":     int64(0),
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert url record: %w", op, err)
	}

	rec := new(urlRecord)
	if err := r.coll.FindOne(ctx, bson.M{"_id": res.InsertedID}).Decode(rec); err != nil {
		return nil, fmt.Errorf("%s: failed to read inserted url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "database.mongo.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	err := r.coll.FindOne(ctx, bson.M{"short_code": shortCode}).Decode(rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByID(ctx context.Context, id string) (*entity.URL, error) {
	const op = "database.mongo.URLRepository.GetByID"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURLID)
	}

	rec := new(urlRecord)
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// List returns up to limit records, newest first.
func (r *URLRepository) List(ctx context.Context, limit int64) ([]*entity.URL, error) {
	const op = "database.mongo.URLRepository.List"

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list url records: %w", op, err)
	}

	var recs []urlRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("%s: failed to decode url records: %w", op, err)
	}

	urls := make([]*entity.URL, 0, len(recs))
	for i := range recs {
		urls = append(urls, recs[i].ToURL())
	}

	return urls, nil
}

// ListShortCodes returns the short codes of every stored record. The click
// reconciliation sweep uses it to enumerate the counters to merge.
func (r *URLRepository) ListShortCodes(ctx context.Context) ([]string, error) {
	const op = "database.mongo.URLRepository.ListShortCodes"

	opts := options.Find().SetProjection(bson.M{"short_code": 1})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list short codes: %w", op, err)
	}

	var recs []urlRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("%s: failed to decode short codes: %w", op, err)
	}

	codes := make([]string, 0, len(recs))
	for i := range recs {
		codes = append(codes, recs[i].ShortCode)
	}

	return codes, nil
}

// IncrementClicks merges delta into the durable click total with an atomic
// $inc. The total is never overwritten, so concurrent merges and deltas
// accrued during the merge stay consistent.
func (r *URLRepository) IncrementClicks(ctx context.Context, shortCode string, delta int64) error {
	const op = "database.mongo.URLRepository.IncrementClicks"

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"short_code": shortCode},
		bson.M{"$inc": bson.M{"clicks": delta}},
	)
	if err != nil {
		return fmt.Errorf("%s: failed to increment clicks: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}
