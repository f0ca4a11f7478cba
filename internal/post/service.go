package post

import (
	"context"
	"errors"
	"log"
	"strings"

	"backend-feedhub/internal/db"
	"backend-feedhub/internal/geocode"
	"backend-feedhub/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	db  db.TxQuerier
	geo geocode.Client
	hub *stream.Hub
}

func NewService(db db.TxQuerier, geo geocode.Client, hub *stream.Hub) *Service {
	return &Service{db: db, geo: geo, hub: hub}
}

// deriveCoordinates resolves location text into a coordinate pair. Geocoding
// failures are soft: the post keeps its location string and null coordinates,
// and the failure is only logged.
func (s *Service) deriveCoordinates(ctx context.Context, location string) (*float64, *float64) {
	coords, found, err := s.geo.Forward(ctx, location)
	if err != nil {
		log.Printf("geocoding %q failed: %v", location, err)
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	return &coords.Lat, &coords.Lng
}

func (s *Service) CreatePost(ctx context.Context, authorID string, input CreateInput) (Post, error) {
	p := Post{
		ID:       uuid.NewString(),
		AuthorID: authorID,
		Text:     input.Text,
	}
	if loc := strings.TrimSpace(input.Location); loc != "" {
		p.Location = &loc
		p.Latitude, p.Longitude = s.deriveCoordinates(ctx, loc)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Post{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO posts (id, author_id, text, location, latitude, longitude)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, p.ID, p.AuthorID, p.Text, p.Location, p.Latitude, p.Longitude)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return Post{}, err
	}

	images, err := insertImages(ctx, tx, p.ID, input.ImageURLs)
	if err != nil {
		return Post{}, err
	}
	p.Images = images

	if err := tx.Commit(ctx); err != nil {
		return Post{}, err
	}

	s.publish(stream.Event{Type: "post.created", PostID: p.ID, ActorID: authorID})
	return p, nil
}

func (s *Service) GetPost(ctx context.Context, id string) (Post, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, author_id, text, location, latitude, longitude, created_at
		FROM posts WHERE id=$1
	`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}

	images, err := loadImages(ctx, s.db, []string{p.ID})
	if err != nil {
		return Post{}, err
	}
	p.Images = images[p.ID]
	return p, nil
}

func (s *Service) UpdatePost(ctx context.Context, postID, requesterID string, input UpdateInput) (Post, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Post{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The row is locked so the location we geocode against is the one being
	// replaced, and the image swap commits atomically with the field update.
	row := tx.QueryRow(ctx, `
		SELECT id, author_id, text, location, latitude, longitude, created_at
		FROM posts WHERE id=$1
		FOR UPDATE
	`, postID)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	if p.AuthorID != requesterID {
		return Post{}, ErrForbidden
	}

	if input.Location != nil {
		s.applyLocation(ctx, &p, strings.TrimSpace(*input.Location))
	}
	if input.Text != nil {
		p.Text = *input.Text
	}

	if _, err := tx.Exec(ctx, `
		UPDATE posts SET text=$2, location=$3, latitude=$4, longitude=$5
		WHERE id=$1
	`, p.ID, p.Text, p.Location, p.Latitude, p.Longitude); err != nil {
		return Post{}, err
	}

	if input.ImageURLs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM post_images WHERE post_id=$1`, p.ID); err != nil {
			return Post{}, err
		}
		images, err := insertImages(ctx, tx, p.ID, *input.ImageURLs)
		if err != nil {
			return Post{}, err
		}
		p.Images = images
	} else {
		images, err := loadImages(ctx, tx, []string{p.ID})
		if err != nil {
			return Post{}, err
		}
		p.Images = images[p.ID]
	}

	if err := tx.Commit(ctx); err != nil {
		return Post{}, err
	}
	return p, nil
}

// applyLocation enforces the location/coordinate consistency rule: an empty
// string clears both, a changed string re-derives coordinates, and an
// unchanged string with null coordinates re-derives too, so a post heals
// after an earlier provider failure.
func (s *Service) applyLocation(ctx context.Context, p *Post, loc string) {
	if loc == "" {
		p.Location, p.Latitude, p.Longitude = nil, nil, nil
		return
	}
	unchanged := p.Location != nil && *p.Location == loc
	if unchanged && p.Latitude != nil && p.Longitude != nil {
		return
	}
	p.Location = &loc
	p.Latitude, p.Longitude = s.deriveCoordinates(ctx, loc)
}

func (s *Service) DeletePost(ctx context.Context, postID, requesterID string) error {
	if err := s.authorize(ctx, postID, requesterID); err != nil {
		return err
	}
	// Images, comments and likes go with the post via FK cascade.
	_, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id=$1`, postID)
	return err
}

func (s *Service) AddComment(ctx context.Context, postID, authorID, text string) (Comment, error) {
	if err := s.postExists(ctx, postID); err != nil {
		return Comment{}, err
	}

	c := Comment{
		ID:       uuid.NewString(),
		PostID:   postID,
		AuthorID: authorID,
		Text:     text,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO comments (id, post_id, author_id, text)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, c.ID, c.PostID, c.AuthorID, c.Text)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// ToggleLike creates a like for (author, post) or removes the existing one.
// The unique constraint on likes makes the decision inside one transaction: a
// conflicting insert affects zero rows, which means the like already existed
// and must be deleted instead.
func (s *Service) ToggleLike(ctx context.Context, postID, authorID string) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id=$1)`, postID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO likes (id, post_id, author_id)
		VALUES ($1,$2,$3)
		ON CONFLICT (author_id, post_id) DO NOTHING
	`, uuid.NewString(), postID, authorID)
	if err != nil {
		return false, err
	}

	liked := tag.RowsAffected() > 0
	if !liked {
		if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE post_id=$1 AND author_id=$2`, postID, authorID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	eventType := "post.unliked"
	if liked {
		eventType = "post.liked"
	}
	s.publish(stream.Event{Type: eventType, PostID: postID, ActorID: authorID})
	return liked, nil
}

func (s *Service) AddImages(ctx context.Context, postID, requesterID string, urls []string) ([]Image, error) {
	if err := s.authorize(ctx, postID, requesterID); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	images, err := insertImages(ctx, tx, postID, urls)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return images, nil
}

func (s *Service) DeleteAllImages(ctx context.Context, postID, requesterID string) error {
	if err := s.authorize(ctx, postID, requesterID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM post_images WHERE post_id=$1`, postID)
	return err
}

// DeleteImage removes one image. An image that does not exist and an image
// belonging to another post both come back as ErrNotFound, so callers cannot
// probe other posts' image ids.
func (s *Service) DeleteImage(ctx context.Context, postID, imageID, requesterID string) error {
	if err := s.authorize(ctx, postID, requesterID); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM post_images WHERE id=$1 AND post_id=$2`, imageID, postID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, postID, requesterID string) error {
	var authorID string
	err := s.db.QueryRow(ctx, `SELECT author_id FROM posts WHERE id=$1`, postID).Scan(&authorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if authorID != requesterID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) postExists(ctx context.Context, postID string) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id=$1)`, postID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func (s *Service) publish(event stream.Event) {
	if s.hub != nil {
		s.hub.PublishEvent(event)
	}
}

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.Text, &p.Location, &p.Latitude, &p.Longitude, &p.CreatedAt)
	return p, err
}

func insertImages(ctx context.Context, q db.Querier, postID string, urls []string) ([]Image, error) {
	var images []Image
	for _, u := range urls {
		img := Image{ID: uuid.NewString(), PostID: postID, URL: u}
		row := q.QueryRow(ctx, `
			INSERT INTO post_images (id, post_id, image_url)
			VALUES ($1,$2,$3)
			RETURNING created_at
		`, img.ID, img.PostID, img.URL)
		if err := row.Scan(&img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func loadImages(ctx context.Context, q db.Querier, postIDs []string) (map[string][]Image, error) {
	if len(postIDs) == 0 {
		return map[string][]Image{}, nil
	}
	rows, err := q.Query(ctx, `
		SELECT id, post_id, image_url, created_at
		FROM post_images WHERE post_id = ANY($1)
		ORDER BY created_at
	`, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := map[string][]Image{}
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.PostID, &img.URL, &img.CreatedAt); err != nil {
			return nil, err
		}
		images[img.PostID] = append(images[img.PostID], img)
	}
	return images, nil
}
