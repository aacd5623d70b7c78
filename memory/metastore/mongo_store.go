package metastore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/latticememory/memex/memory/model"
	"github.com/latticememory/memex/memory/scope"
)

// MongoStore persists memories as BSON documents. Grounded on the teacher's
// src/memory/store/mongodb_store.go, adapted from the original's
// auto-incrementing int64 id (via a counters collection) to the engine's
// caller-supplied string id, and from its $vectorSearch-based SearchMemory
// (now vectorindex's concern) to plain scope/hash lookups.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

const mongoCloseTimeout = 5 * time.Second

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" || database == "" || collection == "" {
		return nil, errors.New("metastore: mongo uri, database and collection are required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(database)
	return &MongoStore{client: client, collection: db.Collection(collection)}, nil
}

func (ms *MongoStore) CreateSchema(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "scope", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("scope_created_at")},
		{Keys: bson.D{{Key: "content_hash", Value: 1}}, Options: options.Index().SetName("content_hash")},
	}
	_, err := ms.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

type mongoDoc struct {
	ID           string         `bson:"_id"`
	Content      string         `bson:"content"`
	Scope        string         `bson:"scope"`
	Tags         []string       `bson:"tags,omitempty"`
	Category     string         `bson:"category,omitempty"`
	Metadata     map[string]any `bson:"metadata,omitempty"`
	CreatedAt    time.Time      `bson:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at"`
	Seq          int64          `bson:"seq"`
	ContentHash  string         `bson:"content_hash"`
	HasEmbedding bool           `bson:"has_embedding"`
}

func toDoc(mem model.Memory) mongoDoc {
	return mongoDoc{
		ID:           mem.ID,
		Content:      mem.Content,
		Scope:        mem.Scope,
		Tags:         mem.Tags,
		Category:     mem.Category,
		Metadata:     mem.Metadata.ToAny(),
		CreatedAt:    mem.CreatedAt,
		UpdatedAt:    mem.UpdatedAt,
		Seq:          mem.Seq,
		ContentHash:  mem.ContentHash,
		HasEmbedding: mem.HasEmbedding,
	}
}

func (d mongoDoc) toMemory() (model.Memory, error) {
	meta, err := model.MetadataFromAny(d.Metadata)
	if err != nil {
		return model.Memory{}, err
	}
	return model.Memory{
		ID:           d.ID,
		Content:      d.Content,
		Scope:        d.Scope,
		Tags:         d.Tags,
		Category:     d.Category,
		Metadata:     meta,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		Seq:          d.Seq,
		ContentHash:  d.ContentHash,
		HasEmbedding: d.HasEmbedding,
	}, nil
}

func (ms *MongoStore) Put(ctx context.Context, mem model.Memory) error {
	doc := toDoc(mem)
	_, err := ms.collection.ReplaceOne(ctx, bson.M{"_id": mem.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (ms *MongoStore) Get(ctx context.Context, id string) (model.Memory, bool, error) {
	var doc mongoDoc
	err := ms.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Memory{}, false, nil
	}
	if err != nil {
		return model.Memory{}, false, err
	}
	mem, err := doc.toMemory()
	if err != nil {
		return model.Memory{}, false, err
	}
	return mem, true, nil
}

func (ms *MongoStore) Delete(ctx context.Context, id string) error {
	_, err := ms.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (ms *MongoStore) FindByScope(ctx context.Context, filter scope.Filter, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = 50
	}
	query := bson.M{}
	switch filter.Kind {
	case scope.FilterExact:
		query["scope"] = filter.Scope
	case scope.FilterPrefix:
		query["scope"] = bson.M{"$regex": "^" + regexEscape(filter.Scope) + "(/|$)"}
	}
	if cursor != "" {
		var last mongoDoc
		if err := ms.collection.FindOne(ctx, bson.M{"_id": cursor}).Decode(&last); err != nil {
			return Page{}, err
		}
		query["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": last.CreatedAt}},
			bson.M{"created_at": last.CreatedAt, "_id": bson.M{"$gt": cursor}},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).SetLimit(int64(limit) + 1)
	cur, err := ms.collection.Find(ctx, query, opts)
	if err != nil {
		return Page{}, err
	}
	defer cur.Close(ctx)

	var docs []mongoDoc
	for cur.Next(ctx) {
		var d mongoDoc
		if err := cur.Decode(&d); err != nil {
			return Page{}, err
		}
		docs = append(docs, d)
	}
	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}
	memories := make([]model.Memory, 0, len(docs))
	for _, d := range docs {
		mem, err := d.toMemory()
		if err != nil {
			return Page{}, err
		}
		memories = append(memories, mem)
	}
	next := ""
	if hasMore && len(memories) > 0 {
		next = memories[len(memories)-1].ID
	}
	return Page{Memories: memories, Cursor: next, HasMore: hasMore}, cur.Err()
}

func (ms *MongoStore) FindByContentHash(ctx context.Context, hash string) ([]model.Memory, error) {
	cur, err := ms.collection.Find(ctx, bson.M{"content_hash": hash})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []model.Memory
	for cur.Next(ctx) {
		var d mongoDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		mem, err := d.toMemory()
		if err != nil {
			return nil, err
		}
		out = append(out, mem)
	}
	return out, cur.Err()
}

func (ms *MongoStore) Count(ctx context.Context, filter scope.Filter) (int, error) {
	query := bson.M{}
	switch filter.Kind {
	case scope.FilterExact:
		query["scope"] = filter.Scope
	case scope.FilterPrefix:
		query["scope"] = bson.M{"$regex": "^" + regexEscape(filter.Scope) + "(/|$)"}
	}
	n, err := ms.collection.CountDocuments(ctx, query)
	return int(n), err
}

func (ms *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

func regexEscape(s string) string {
	special := `.+*?()|[]{}^$\`
	out := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if containsByte(special, c) {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

func containsByte(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}
