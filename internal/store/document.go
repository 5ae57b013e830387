package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JonMunkholm/richway/internal/core"
)

// memberDoc is the stored shape of a record.
type memberDoc struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	Name   string             `bson:"name"`
	Email  string             `bson:"email"`
	Phone  string             `bson:"phone"`
	City   string             `bson:"city"`
	UserID string             `bson:"userId"`
	Time   time.Time          `bson:"time"`
}

func docFromRecord(rec core.Record) memberDoc {
	return memberDoc{
		Name:   rec.Name,
		Email:  rec.Email,
		Phone:  rec.Phone,
		City:   rec.City,
		UserID: rec.UserID,
		Time:   rec.Time,
	}
}

func (d memberDoc) record() core.Record {
	return core.Record{
		Name:   d.Name,
		Email:  d.Email,
		Phone:  d.Phone,
		City:   d.City,
		UserID: d.UserID,
		Time:   d.Time,
	}
}

// memberCollection is the slice of the driver the document store needs.
type memberCollection interface {
	Insert(ctx context.Context, doc memberDoc) error
	FindNewestFirst(ctx context.Context) ([]memberDoc, error)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (m mongoCollection) Insert(ctx context.Context, doc memberDoc) error {
	_, err := m.coll.InsertOne(ctx, doc)
	return err
}

func (m mongoCollection) FindNewestFirst(ctx context.Context) ([]memberDoc, error) {
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: -1}})
	cur, err := m.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []memberDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Document stores records in a MongoDB collection.
type Document struct {
	client *mongo.Client
	coll   memberCollection
}

// NewDocument connects to uri and verifies the connection with a ping.
func NewDocument(ctx context.Context, uri, database, collection string) (*Document, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Document{
		client: client,
		coll:   mongoCollection{coll: client.Database(database).Collection(collection)},
	}, nil
}

// Append inserts one document.
func (d *Document) Append(ctx context.Context, rec core.Record) error {
	if err := d.coll.Insert(ctx, docFromRecord(rec)); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// List returns every record sorted by time, newest first.
func (d *Document) List(ctx context.Context) ([]core.Record, error) {
	docs, err := d.coll.FindNewestFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("find members: %w", err)
	}
	records := make([]core.Record, len(docs))
	for i, doc := range docs {
		records[i] = doc.record()
	}
	return records, nil
}

// Export renders the List result.
func (d *Document) Export(ctx context.Context) ([]byte, error) {
	records, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	return WriteWorkbook(records)
}

func (d *Document) Backend() string { return "mongo" }

// Close disconnects the client.
func (d *Document) Close(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	return d.client.Disconnect(ctx)
}
