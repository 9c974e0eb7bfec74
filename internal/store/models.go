package store

import "go.mongodb.org/mongo-driver/bson/primitive"

type Room struct {
	Name string `bson:"name" json:"name"`
}

// Thread is an originating post. Replies live embedded in the thread
// document; they have no independent lifecycle.
type Thread struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Op          bool               `bson:"op" json:"op"`
	Room        string             `bson:"room" json:"room"`
	Text        string             `bson:"text" json:"text"`
	ImageID     *string            `bson:"image_id" json:"image_id"`
	ThumbnailID *string            `bson:"thumbnail_id" json:"thumbnail_id"`
	Created     int64              `bson:"created" json:"created"`
	Replies     []Reply            `bson:"replies" json:"replies"`
}

type Reply struct {
	Op          bool    `bson:"op" json:"op"`
	Room        string  `bson:"room" json:"room"`
	ThreadID    string  `bson:"thread_id" json:"thread_id"`
	Text        string  `bson:"text" json:"text"`
	ImageID     *string `bson:"image_id" json:"image_id"`
	ThumbnailID *string `bson:"thumbnail_id" json:"thumbnail_id"`
	Created     int64   `bson:"created" json:"created"`
}
