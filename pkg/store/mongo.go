package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/reqtrace/pkg/integrations"
	"github.com/matzehuels/reqtrace/pkg/trace"
)

const (
	// DefaultDatabase is used when the connection URI names no database.
	DefaultDatabase = "reqtrace"

	reportsCollection = "reports"
	connectTimeout    = 5 * time.Second
)

// MongoStore keeps reports in the "reports" collection of a MongoDB
// database. Documents carry a "package_key" field holding the normalized
// package name for filtering.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and verifies the connection with a ping.
// The database is taken from the URI path, defaulting to [DefaultDatabase].
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	db, err := databaseFromURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	coll := client.Database(db).Collection(reportsCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "package_key", Value: 1}, {Key: "started_at", Value: -1}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

func databaseFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse mongodb uri: %w", err)
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		return db, nil
	}
	return DefaultDatabase, nil
}

// document is the stored shape of a report.
type document struct {
	trace.Report `bson:",inline"`
	PackageKey   string `bson:"package_key"`
}

func (s *MongoStore) Save(ctx context.Context, r *trace.Report) error {
	doc := document{Report: *r, PackageKey: integrations.NormalizePkgName(r.Package)}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": r.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*trace.Report, error) {
	var r trace.Report
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return &r, nil
}

func (s *MongoStore) List(ctx context.Context, pkg string, limit int) ([]*trace.Report, error) {
	filter := bson.M{}
	if key := integrations.NormalizePkgName(pkg); key != "" {
		filter["package_key"] = key
	}
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	var out []*trace.Report
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return out, nil
}

// Close disconnects from the server.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
