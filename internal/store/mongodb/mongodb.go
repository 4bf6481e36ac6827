// Package mongodb implements the store interfaces on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kastor/polyglot-gateway/internal/model"
	"github.com/kastor/polyglot-gateway/internal/store"
)

// IsTarget reports whether target is a MongoDB connection string.
func IsTarget(target string) bool {
	return strings.HasPrefix(target, "mongodb://") || strings.HasPrefix(target, "mongodb+srv://")
}

// Dialer connects to a MongoDB deployment.
type Dialer struct {
	uri      string
	database string
}

var _ store.Dialer = (*Dialer)(nil)

// NewDialer returns a Dialer for uri selecting store.DatabaseName.
func NewDialer(uri string) (*Dialer, error) {
	if !IsTarget(uri) {
		return nil, fmt.Errorf("mongo: target %q is not a mongodb:// or mongodb+srv:// URI", uri)
	}
	return &Dialer{uri: uri, database: store.DatabaseName}, nil
}

// Name implements store.Dialer.
func (d *Dialer) Name() string { return "mongodb" }

// Dial creates a client and pings the primary. mongo.Connect only starts
// background monitoring, so the ping is what surfaces refused connections
// and authentication failures.
func (d *Dialer) Dial(ctx context.Context) (store.Handle, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(d.uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		// Disconnect on a fresh context: ctx may be the one that just expired.
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
		return nil, fmt.Errorf("mongo: pinging primary: %w", err)
	}

	db := client.Database(d.database)
	return &Client{
		client:   client,
		snippets: &snippets{coll: db.Collection(store.SnippetsCollection)},
	}, nil
}

// Client is a live MongoDB handle.
type Client struct {
	client   *mongo.Client
	snippets *snippets
}

var _ store.Handle = (*Client)(nil)

// Snippets implements store.Handle.
func (c *Client) Snippets() store.Collection { return c.snippets }

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnecting: %w", err)
	}
	return nil
}

// snippetDoc is the stored document shape.
type snippetDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Code      string             `bson:"code"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d snippetDoc) toModel() model.Snippet {
	return model.Snippet{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Code:      d.Code,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type snippets struct {
	coll *mongo.Collection
}

var _ store.Collection = (*snippets)(nil)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// EnsureIndexes creates {createdAt: -1}. MongoDB treats creating an
// identical index as a no-op.
func (s *snippets) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: newestFirst})
	if err != nil {
		return fmt.Errorf("mongo: creating createdAt index: %w", err)
	}
	return nil
}

// Insert lets the driver assign an ObjectID and returns its hex form.
func (s *snippets) Insert(ctx context.Context, sn model.Snippet) (string, error) {
	res, err := s.coll.InsertOne(ctx, snippetDoc{
		Title:     sn.Title,
		Code:      sn.Code,
		CreatedAt: sn.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("mongo: inserting snippet: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("mongo: inserted id is not an ObjectID")
	}
	return oid.Hex(), nil
}

// FindNewestFirst returns every snippet sorted by createdAt descending.
func (s *snippets) FindNewestFirst(ctx context.Context) ([]model.Snippet, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("mongo: finding snippets: %w", err)
	}

	var docs []snippetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decoding snippets: %w", err)
	}

	result := make([]model.Snippet, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toModel())
	}
	return result, nil
}
