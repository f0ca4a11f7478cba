package post

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// Post is the aggregate root. Location is the user-supplied address string;
// Latitude/Longitude are derived from it by forward geocoding and are either
// both set or both nil.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	Location  *string   `json:"location,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Images    []Image   `json:"images,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Image struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	URL       string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateInput struct {
	Text      string   `json:"text"`
	Location  string   `json:"location"`
	ImageURLs []string `json:"image_urls"`
}

// UpdateInput uses pointers so an omitted field is distinguishable from an
// explicit empty value. An empty Location clears the address and coordinates.
type UpdateInput struct {
	Text      *string   `json:"text"`
	Location  *string   `json:"location"`
	ImageURLs *[]string `json:"image_urls"`
}

// View is the read-path shape: coordinates are server-computed output,
// location is the reverse-geocoded display string when coordinates resolve,
// the raw stored string otherwise.
type View struct {
	ID        string        `json:"id"`
	AuthorID  string        `json:"author_id"`
	Text      string        `json:"text"`
	Location  string        `json:"location,omitempty"`
	Latitude  *float64      `json:"latitude,omitempty"`
	Longitude *float64      `json:"longitude,omitempty"`
	Images    []Image       `json:"images,omitempty"`
	Comments  []CommentView `json:"comments"`
	LikeCount int           `json:"likes_count"`
	CreatedAt time.Time     `json:"created_at"`
}

type CommentView struct {
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
