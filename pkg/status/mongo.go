package status

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/juliencaulet/acm-control/pkg/errors"
)

// Inspector issues read-only introspection queries against the datastore.
// Every method tolerates the datastore being reachable-but-unresponsive and
// reports that as a degraded error, distinct from not-running.
type Inspector interface {
	Ping(ctx context.Context) error
	ServerVersion(ctx context.Context) (string, error)
	Connections(ctx context.Context) (ConnectionCounts, error)
	Databases(ctx context.Context) ([]DatabaseStats, error)
	Collections(ctx context.Context) ([]CollectionStats, error)
	Users(ctx context.Context) ([]UserInfo, error)
	Indexes(ctx context.Context) ([]IndexInfo, error)
	Close(ctx context.Context) error
}

type ConnectionCounts struct {
	Current int64
	Active  int64
}

type DatabaseStats struct {
	Name        string
	Collections int64
	Objects     int64
	StorageSize uint64
}

type CollectionStats struct {
	Database  string
	Name      string
	Documents int64
}

type UserInfo struct {
	User  string
	Roles []string
}

type IndexInfo struct {
	Database   string
	Collection string
	Name       string
}

// mirror the original client's server selection timeout
const mongoSelectionTimeout = 5 * time.Second

type mongoInspector struct {
	url    string
	client *mongo.Client
}

// NewMongoInspector creates an Inspector for the given connection string.
// The connection is established lazily on first use.
func NewMongoInspector(url string) Inspector {
	return &mongoInspector{url: url}
}

func (m *mongoInspector) connect(ctx context.Context) (*mongo.Client, error) {
	if m.client != nil {
		return m.client, nil
	}
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(m.url).
		SetServerSelectionTimeout(mongoSelectionTimeout))
	if err != nil {
		return nil, errors.NewDegradedError("failed to connect to datastore", err).WithContext("url", m.url)
	}
	m.client = client
	return client, nil
}

func (m *mongoInspector) Ping(ctx context.Context) error {
	client, err := m.connect(ctx)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.NewDegradedError("datastore is not answering", err).WithContext("url", m.url)
	}
	return nil
}

func (m *mongoInspector) ServerVersion(ctx context.Context) (string, error) {
	doc, err := m.runAdminCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}})
	if err != nil {
		return "", err
	}
	version, _ := doc["version"].(string)
	return version, nil
}

func (m *mongoInspector) Connections(ctx context.Context) (ConnectionCounts, error) {
	doc, err := m.runAdminCommand(ctx, bson.D{{Key: "serverStatus", Value: 1}})
	if err != nil {
		return ConnectionCounts{}, err
	}
	counts := ConnectionCounts{}
	if conns, ok := doc["connections"].(bson.M); ok {
		counts.Current = toInt64(conns["current"])
		counts.Active = toInt64(conns["active"])
	}
	return counts, nil
}

func (m *mongoInspector) Databases(ctx context.Context) ([]DatabaseStats, error) {
	client, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, errors.NewDegradedError("failed to list databases", err)
	}
	sort.Strings(names)

	var stats []DatabaseStats
	for _, name := range names {
		var doc bson.M
		err := client.Database(name).RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&doc)
		if err != nil {
			return nil, errors.NewDegradedError("dbStats failed", err).WithContext("database", name)
		}
		stats = append(stats, DatabaseStats{
			Name:        name,
			Collections: toInt64(doc["collections"]),
			Objects:     toInt64(doc["objects"]),
			StorageSize: uint64(toInt64(doc["storageSize"])),
		})
	}
	return stats, nil
}

func (m *mongoInspector) Collections(ctx context.Context) ([]CollectionStats, error) {
	client, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}

	var stats []CollectionStats
	for _, dbName := range m.applicationDatabases(ctx, client) {
		db := client.Database(dbName)
		names, err := db.ListCollectionNames(ctx, bson.D{})
		if err != nil {
			return nil, errors.NewDegradedError("failed to list collections", err).WithContext("database", dbName)
		}
		sort.Strings(names)
		for _, collName := range names {
			count, err := db.Collection(collName).EstimatedDocumentCount(ctx)
			if err != nil {
				return nil, errors.NewDegradedError("failed to count documents", err).
					WithContext("database", dbName).
					WithContext("collection", collName)
			}
			stats = append(stats, CollectionStats{Database: dbName, Name: collName, Documents: count})
		}
	}
	return stats, nil
}

func (m *mongoInspector) Users(ctx context.Context) ([]UserInfo, error) {
	doc, err := m.runAdminCommand(ctx, bson.D{{Key: "usersInfo", Value: 1}})
	if err != nil {
		return nil, err
	}

	var users []UserInfo
	rawUsers, _ := doc["users"].(primitive.A)
	for _, raw := range rawUsers {
		userDoc, ok := raw.(bson.M)
		if !ok {
			continue
		}
		info := UserInfo{}
		info.User, _ = userDoc["user"].(string)
		if roles, ok := userDoc["roles"].(primitive.A); ok {
			for _, rawRole := range roles {
				if roleDoc, ok := rawRole.(bson.M); ok {
					role, _ := roleDoc["role"].(string)
					db, _ := roleDoc["db"].(string)
					info.Roles = append(info.Roles, role+"@"+db)
				}
			}
		}
		users = append(users, info)
	}
	return users, nil
}

func (m *mongoInspector) Indexes(ctx context.Context) ([]IndexInfo, error) {
	client, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}

	var indexes []IndexInfo
	for _, dbName := range m.applicationDatabases(ctx, client) {
		db := client.Database(dbName)
		collNames, err := db.ListCollectionNames(ctx, bson.D{})
		if err != nil {
			return nil, errors.NewDegradedError("failed to list collections", err).WithContext("database", dbName)
		}
		sort.Strings(collNames)
		for _, collName := range collNames {
			cursor, err := db.Collection(collName).Indexes().List(ctx)
			if err != nil {
				return nil, errors.NewDegradedError("failed to list indexes", err).
					WithContext("database", dbName).
					WithContext("collection", collName)
			}
			var docs []bson.M
			if err := cursor.All(ctx, &docs); err != nil {
				return nil, errors.NewDegradedError("failed to read index cursor", err)
			}
			for _, doc := range docs {
				name, _ := doc["name"].(string)
				indexes = append(indexes, IndexInfo{Database: dbName, Collection: collName, Name: name})
			}
		}
	}
	return indexes, nil
}

func (m *mongoInspector) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	m.client = nil
	return err
}

func (m *mongoInspector) runAdminCommand(ctx context.Context, cmd bson.D) (bson.M, error) {
	client, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := client.Database("admin").RunCommand(ctx, cmd).Decode(&doc); err != nil {
		return nil, errors.NewDegradedError("datastore command failed", err).WithContext("command", commandName(cmd))
	}
	return doc, nil
}

// applicationDatabases filters out the server-internal databases.
func (m *mongoInspector) applicationDatabases(ctx context.Context, client *mongo.Client) []string {
	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil
	}
	var filtered []string
	for _, name := range names {
		if IsInternalDatabase(name) {
			continue
		}
		filtered = append(filtered, name)
	}
	sort.Strings(filtered)
	return filtered
}

func commandName(cmd bson.D) string {
	if len(cmd) == 0 {
		return ""
	}
	return cmd[0].Key
}

// toInt64 coerces the numeric types the server may answer with.
func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

// IsInternalDatabase reports whether a database name belongs to the server
// rather than the application.
func IsInternalDatabase(name string) bool {
	switch strings.TrimSpace(name) {
	case "admin", "local", "config":
		return true
	}
	return false
}
