package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotFound is returned when a thread id matches no document. Malformed
// ids are reported the same way as absent ones.
var ErrNotFound = errors.New("thread not found")

const roomsCollection = "rooms"

// MongoStore holds per-room thread collections plus the global room
// registry collection.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func Open(ctx context.Context, url, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}

	// Uniqueness on room names keeps concurrent first-use creation from
	// producing duplicate registry entries.
	_, err = s.db.Collection(roomsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure rooms index: %w", err)
	}

	return s, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Database exposes the underlying handle so the GridFS blob backend can
// share the connection.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

// threads resolves a room to its collection handle. All call sites go
// through here rather than interpolating collection names themselves.
func (s *MongoStore) threads(room string) *mongo.Collection {
	return s.db.Collection("threads_" + room)
}

func (s *MongoStore) EnsureRoom(ctx context.Context, name string) error {
	_, err := s.db.Collection(roomsCollection).UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$setOnInsert": bson.M{"name": name}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("ensure room: %w", err)
	}
	return nil
}

func (s *MongoStore) ListRooms(ctx context.Context) ([]Room, error) {
	cursor, err := s.db.Collection(roomsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer cursor.Close(ctx)

	rooms := []Room{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return rooms, nil
}

func (s *MongoStore) InsertThread(ctx context.Context, room string, thread Thread) (Thread, error) {
	if thread.Replies == nil {
		thread.Replies = []Reply{}
	}
	result, err := s.threads(room).InsertOne(ctx, thread)
	if err != nil {
		return Thread{}, fmt.Errorf("insert thread: %w", err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return Thread{}, fmt.Errorf("insert thread: unexpected id type %T", result.InsertedID)
	}
	thread.ID = id
	return thread, nil
}

// ListThreads returns every thread in the room with embedded replies,
// sorted by creation time ascending.
func (s *MongoStore) ListThreads(ctx context.Context, room string) ([]Thread, error) {
	cursor, err := s.threads(room).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer cursor.Close(ctx)

	threads := []Thread{}
	if err := cursor.All(ctx, &threads); err != nil {
		return nil, fmt.Errorf("decode threads: %w", err)
	}
	return threads, nil
}

func (s *MongoStore) GetThread(ctx context.Context, room, threadID string) (Thread, error) {
	oid, err := primitive.ObjectIDFromHex(threadID)
	if err != nil {
		return Thread{}, ErrNotFound
	}

	var thread Thread
	err = s.threads(room).FindOne(ctx, bson.M{"_id": oid}).Decode(&thread)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Thread{}, ErrNotFound
	}
	if err != nil {
		return Thread{}, fmt.Errorf("get thread: %w", err)
	}
	return thread, nil
}

// AppendReply pushes onto the matching thread's replies array. The push is
// atomic per document; zero matched documents means the thread is gone.
func (s *MongoStore) AppendReply(ctx context.Context, room, threadID string, reply Reply) error {
	oid, err := primitive.ObjectIDFromHex(threadID)
	if err != nil {
		return ErrNotFound
	}

	result, err := s.threads(room).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"replies": reply}},
	)
	if err != nil {
		return fmt.Errorf("append reply: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteThread is idempotent: deleting an absent thread is not an error.
func (s *MongoStore) DeleteThread(ctx context.Context, room, threadID string) error {
	oid, err := primitive.ObjectIDFromHex(threadID)
	if err != nil {
		return nil
	}
	if _, err := s.threads(room).DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

// SearchThreads is the fallback text search used when Meilisearch is not
// available: a case-insensitive regex match over thread and reply text.
func (s *MongoStore) SearchThreads(ctx context.Context, room, query string, limit int) ([]Thread, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"text": pattern},
		bson.M{"replies.text": pattern},
	}}

	cursor, err := s.threads(room).Find(ctx, filter,
		options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "created", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("search threads: %w", err)
	}
	defer cursor.Close(ctx)

	threads := []Thread{}
	if err := cursor.All(ctx, &threads); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	return threads, nil
}
