package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps blobs in the same Mongo database as the documents.
// It is the default backend when no MinIO endpoint is configured.
type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &GridFSStore{bucket: bucket}, nil
}

type gridfsMetadata struct {
	ContentType string `bson:"contentType"`
}

func (s *GridFSStore) Put(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	id, err := s.bucket.UploadFromStream(filename, bytes.NewReader(data), opts)
	if err != nil {
		return "", fmt.Errorf("gridfs upload: %w", err)
	}
	return id.Hex(), nil
}

func (s *GridFSStore) Get(ctx context.Context, id string) (Blob, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Blob{}, ErrNotFound
	}

	stream, err := s.bucket.OpenDownloadStream(oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("gridfs open: %w", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return Blob{}, fmt.Errorf("gridfs read: %w", err)
	}

	file := stream.GetFile()
	blob := Blob{Data: data, Filename: file.Name}
	if len(file.Metadata) > 0 {
		var meta gridfsMetadata
		if err := bson.Unmarshal(file.Metadata, &meta); err == nil {
			blob.ContentType = meta.ContentType
		}
	}
	return blob, nil
}

func (s *GridFSStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	err = s.bucket.Delete(oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("gridfs delete: %w", err)
	}
	return nil
}
