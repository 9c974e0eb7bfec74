package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"frameboard/api/internal/auth"
	"frameboard/api/internal/blob"
	"frameboard/api/internal/search"
	"frameboard/api/internal/store"
	"frameboard/api/internal/thumbnail"
)

type dataStore interface {
	InsertThread(ctx context.Context, room string, thread store.Thread) (store.Thread, error)
	ListThreads(ctx context.Context, room string) ([]store.Thread, error)
	GetThread(ctx context.Context, room, threadID string) (store.Thread, error)
	AppendReply(ctx context.Context, room, threadID string, reply store.Reply) error
	DeleteThread(ctx context.Context, room, threadID string) error
	Ping(ctx context.Context) error
}

type roomRegistry interface {
	Ensure(ctx context.Context, name string) error
	List(ctx context.Context) ([]store.Room, error)
}

// Service orchestrates thread/reply ingestion and retrieval. It holds no
// mutable state of its own; every dependency is safe for concurrent use.
type Service struct {
	store  dataStore
	blobs  blob.Store
	rooms  roomRegistry
	search *search.Service
	gate   *auth.AdminGate
	now    func() time.Time
}

func New(dataStore dataStore, blobs blob.Store, rooms roomRegistry, searchSvc *search.Service, gate *auth.AdminGate) *Service {
	return &Service{
		store:  dataStore,
		blobs:  blobs,
		rooms:  rooms,
		search: searchSvc,
		gate:   gate,
		now:    time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ingest stores the uploaded image and its derived thumbnail. The
// thumbnail is generated before anything is stored, so an undecodable
// upload leaves no blobs behind; a failure storing the thumbnail rolls
// back the original best-effort.
func (s *Service) ingest(ctx context.Context, file []byte, filename string) (imageID, thumbID *string, err error) {
	thumb, err := thumbnail.Make(file, thumbnail.DefaultMaxWidth, thumbnail.DefaultMaxHeight)
	if err != nil {
		if errors.Is(err, thumbnail.ErrDecode) {
			return nil, nil, errInvalidImage()
		}
		return nil, nil, fmt.Errorf("make thumbnail: %w", err)
	}

	original, err := s.blobs.Put(ctx, file, filename, http.DetectContentType(file))
	if err != nil {
		return nil, nil, fmt.Errorf("store image: %w", err)
	}

	thumbName := filename
	if thumbName != "" {
		thumbName = "thumb_" + thumbName
	}
	derived, err := s.blobs.Put(ctx, thumb, thumbName, "image/jpeg")
	if err != nil {
		s.dropBlobs(ctx, &original)
		return nil, nil, fmt.Errorf("store thumbnail: %w", err)
	}

	return &original, &derived, nil
}

// dropBlobs is the best-effort compensation for partial ingestion; a
// failed delete only logs.
func (s *Service) dropBlobs(ctx context.Context, ids ...*string) {
	for _, id := range ids {
		if id == nil {
			continue
		}
		if err := s.blobs.Delete(ctx, *id); err != nil {
			log.Printf("app: orphaned blob %s not deleted: %v", *id, err)
		}
	}
}

// CreateThread persists an originating post, creating the room on first
// use and ingesting the optional image.
func (s *Service) CreateThread(ctx context.Context, room, text string, file []byte, filename string) (store.Thread, error) {
	if err := s.rooms.Ensure(ctx, room); err != nil {
		return store.Thread{}, err
	}

	var imageID, thumbID *string
	if len(file) > 0 {
		var err error
		imageID, thumbID, err = s.ingest(ctx, file, filename)
		if err != nil {
			return store.Thread{}, err
		}
	}

	thread := store.Thread{
		Op:          true,
		Room:        room,
		Text:        text,
		ImageID:     imageID,
		ThumbnailID: thumbID,
		Created:     s.now().Unix(),
		Replies:     []store.Reply{},
	}

	created, err := s.store.InsertThread(ctx, room, thread)
	if err != nil {
		s.dropBlobs(ctx, imageID, thumbID)
		return store.Thread{}, err
	}

	if s.search != nil {
		s.search.IndexThread(threadRecord(created))
	}
	return created, nil
}

// CreateReply appends to the parent thread's replies array. The room is
// assumed to exist; an append matching zero documents is ThreadNotFound
// and any blobs stored for the reply are rolled back best-effort.
func (s *Service) CreateReply(ctx context.Context, room, threadID, text string, file []byte, filename string) (store.Reply, error) {
	var imageID, thumbID *string
	if len(file) > 0 {
		var err error
		imageID, thumbID, err = s.ingest(ctx, file, filename)
		if err != nil {
			return store.Reply{}, err
		}
	}

	reply := store.Reply{
		Op:          false,
		Room:        room,
		ThreadID:    threadID,
		Text:        text,
		ImageID:     imageID,
		ThumbnailID: thumbID,
		Created:     s.now().Unix(),
	}

	if err := s.store.AppendReply(ctx, room, threadID, reply); err != nil {
		s.dropBlobs(ctx, imageID, thumbID)
		if errors.Is(err, store.ErrNotFound) {
			return store.Reply{}, errThreadNotFound()
		}
		return store.Reply{}, err
	}

	s.reindexThread(room, threadID)
	return reply, nil
}

// ListThreads returns the room's threads sorted by creation time
// ascending. An unknown room yields an empty list, not an error.
func (s *Service) ListThreads(ctx context.Context, room string) ([]store.Thread, error) {
	return s.store.ListThreads(ctx, room)
}

func (s *Service) GetThread(ctx context.Context, room, threadID string) (store.Thread, error) {
	thread, err := s.store.GetThread(ctx, room, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Thread{}, errThreadNotFound()
	}
	if err != nil {
		return store.Thread{}, err
	}
	return thread, nil
}

// AdminDeleteThread removes a thread after checking the admin key. The
// delete is idempotent; blobs referenced by the thread and its replies
// are cleaned up best-effort.
func (s *Service) AdminDeleteThread(ctx context.Context, room, threadID, key string) error {
	if !s.gate.Authorize(key) {
		return errForbidden()
	}

	thread, err := s.store.GetThread(ctx, room, threadID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if err := s.store.DeleteThread(ctx, room, threadID); err != nil {
		return err
	}

	if err == nil {
		s.dropBlobs(ctx, thread.ImageID, thread.ThumbnailID)
		for _, reply := range thread.Replies {
			s.dropBlobs(ctx, reply.ImageID, reply.ThumbnailID)
		}
		if s.search != nil {
			s.search.DeleteThread(thread.ID.Hex())
		}
	}
	return nil
}

// GetBlob fetches a stored image or thumbnail. Malformed and absent ids
// are indistinguishable to the caller.
func (s *Service) GetBlob(ctx context.Context, id string) (blob.Blob, error) {
	stored, err := s.blobs.Get(ctx, id)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Blob{}, errBlobNotFound()
	}
	if err != nil {
		return blob.Blob{}, err
	}
	if stored.ContentType == "" {
		stored.ContentType = "image/jpeg"
	}
	return stored, nil
}

func (s *Service) ListRooms(ctx context.Context) ([]store.Room, error) {
	return s.rooms.List(ctx)
}

// SearchThreads queries thread and reply text within one room.
func (s *Service) SearchThreads(ctx context.Context, room, query string, limit int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: query}
	}
	return s.search.Search(ctx, search.Query{Room: room, Text: query, Limit: limit})
}

// reindexThread refreshes the search record after a reply append. The
// re-read happens off the request path; the caller's response is built
// from the constructed reply alone.
func (s *Service) reindexThread(room, threadID string) {
	if s.search == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		thread, err := s.store.GetThread(ctx, room, threadID)
		if err != nil {
			log.Printf("app: reindex thread %s: %v", threadID, err)
			return
		}
		s.search.IndexThread(threadRecord(thread))
	}()
}

// threadRecord projects a thread into its searchable form: OP text plus
// all reply texts.
func threadRecord(thread store.Thread) search.Record {
	parts := make([]string, 0, len(thread.Replies)+1)
	if thread.Text != "" {
		parts = append(parts, thread.Text)
	}
	for _, reply := range thread.Replies {
		if reply.Text != "" {
			parts = append(parts, reply.Text)
		}
	}
	return search.Record{
		ID:      thread.ID.Hex(),
		Room:    thread.Room,
		Text:    strings.Join(parts, "\n"),
		Created: thread.Created,
	}
}
