package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sitecraft/siteadmin/internal/document"
	"github.com/sitecraft/siteadmin/internal/site"
)

// MongoRepo stores one record per document kind, keyed by the kind. The
// compare-and-swap is a single UpdateOne filtered on the expected sha; a
// first write is an insert that loses to a concurrent one on the _id index.
type MongoRepo struct {
	col *mongo.Collection
}

type mongoRecord struct {
	Kind      string    `bson:"_id"`
	Data      string    `bson:"data"`
	SHA       string    `bson:"sha"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Get(ctx context.Context, kind site.Kind) (document.Snapshot, error) {
	var rec mongoRecord
	err := m.col.FindOne(ctx, bson.M{"_id": kind.String()}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return document.Snapshot{}, ErrNotFound
		}
		return document.Snapshot{}, err
	}
	return rec.snapshot(), nil
}

func (m *MongoRepo) Put(ctx context.Context, kind site.Kind, data []byte, expectedSHA string) (document.Snapshot, error) {
	rec := mongoRecord{
		Kind:      kind.String(),
		Data:      string(data),
		SHA:       document.ComputeSHA(data),
		UpdatedAt: time.Now().UTC(),
	}
	if expectedSHA == "" {
		if _, err := m.col.InsertOne(ctx, rec); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return document.Snapshot{}, ErrConflict
			}
			return document.Snapshot{}, err
		}
		return rec.snapshot(), nil
	}

	filter := bson.M{"_id": rec.Kind, "sha": expectedSHA}
	update := bson.M{"$set": bson.M{"data": rec.Data, "sha": rec.SHA, "updatedAt": rec.UpdatedAt}}
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return document.Snapshot{}, err
	}
	if res.MatchedCount == 0 {
		return document.Snapshot{}, ErrConflict
	}
	return rec.snapshot(), nil
}

func (r mongoRecord) snapshot() document.Snapshot {
	return document.Snapshot{
		Kind:      site.Kind(r.Kind),
		Data:      []byte(r.Data),
		SHA:       r.SHA,
		UpdatedAt: r.UpdatedAt,
	}
}
