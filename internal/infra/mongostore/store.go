package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/osvaldoandrade/docprov/internal/app/provision"
	"github.com/osvaldoandrade/docprov/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const DefaultConnectTimeout = 10 * time.Second

var ErrURIRequired = errors.New("mongodb uri is required")

type Options struct {
	URI            string
	ConnectTimeout time.Duration
	AppName        string
}

// Store is a connected MongoDB deployment. Databases are selected per call;
// the client keeps no notion of a current database.
type Store struct {
	client *mongo.Client
}

// Connect dials the deployment and pings the primary so an unreachable
// server surfaces as ErrConnection before any provisioning starts.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	uri := strings.TrimSpace(opts.URI)
	if uri == "" {
		return nil, ErrURIRequired
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}
	if err := clientOpts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: parse uri: %w", domain.ErrConnection, err)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", domain.ErrConnection, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %w", domain.ErrConnection, err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) SelectDatabase(ctx context.Context, name string) (provision.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Database{db: s.client.Database(name)}, nil
}

// WinningIndex explains {field: {$gte: <lower bound>}} and returns the index
// the winning plan scans, or "" for a collection scan.
func (s *Store) WinningIndex(ctx context.Context, database, collection, field string, bsonType domain.BSONType) (string, error) {
	command := bson.D{
		{Key: "explain", Value: bson.D{
			{Key: "find", Value: collection},
			{Key: "filter", Value: bson.D{{Key: field, Value: bson.D{{Key: "$gte", Value: lowerBound(bsonType)}}}}},
		}},
		{Key: "verbosity", Value: "queryPlanner"},
	}
	raw, err := s.client.Database(database).RunCommand(ctx, command).Raw()
	if err != nil {
		return "", mapError("explain "+database+"."+collection, err)
	}
	return winningIndexName(raw)
}
