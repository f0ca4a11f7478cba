package post

import (
	"context"
	"log"
)

// ListViews returns every post in feed order with the read-path enrichment:
// images, comments, like counts and the display location.
func (s *Service) ListViews(ctx context.Context) ([]View, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, author_id, text, location, latitude, longitude, created_at
		FROM posts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	var ids []string
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Text, &p.Location, &p.Latitude, &p.Longitude, &p.CreatedAt); err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
		posts = append(posts, p)
	}

	images, err := loadImages(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	comments, err := s.loadComments(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.loadLikeCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(posts))
	for _, p := range posts {
		p.Images = images[p.ID]
		views = append(views, s.buildView(ctx, p, comments[p.ID], counts[p.ID]))
	}
	return views, nil
}

func (s *Service) DetailView(ctx context.Context, id string) (View, error) {
	p, err := s.GetPost(ctx, id)
	if err != nil {
		return View{}, err
	}
	comments, err := s.loadComments(ctx, []string{id})
	if err != nil {
		return View{}, err
	}
	counts, err := s.loadLikeCounts(ctx, []string{id})
	if err != nil {
		return View{}, err
	}
	return s.buildView(ctx, p, comments[id], counts[id]), nil
}

func (s *Service) buildView(ctx context.Context, p Post, comments []CommentView, likeCount int) View {
	if comments == nil {
		comments = []CommentView{}
	}
	return View{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Text:      p.Text,
		Location:  s.displayLocation(ctx, p),
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Images:    p.Images,
		Comments:  comments,
		LikeCount: likeCount,
		CreatedAt: p.CreatedAt,
	}
}

// displayLocation prefers the reverse-geocoded address for posts with
// coordinates; any lookup failure falls back to the stored location string.
func (s *Service) displayLocation(ctx context.Context, p Post) string {
	if p.Latitude != nil && p.Longitude != nil {
		addr, found, err := s.geo.Reverse(ctx, *p.Latitude, *p.Longitude)
		if err != nil {
			log.Printf("reverse geocoding post %s failed: %v", p.ID, err)
		} else if found {
			return addr
		}
	}
	if p.Location != nil {
		return *p.Location
	}
	return ""
}

func (s *Service) loadComments(ctx context.Context, postIDs []string) (map[string][]CommentView, error) {
	if len(postIDs) == 0 {
		return map[string][]CommentView{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT post_id, author_id, text, created_at
		FROM comments WHERE post_id = ANY($1)
		ORDER BY created_at
	`, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := map[string][]CommentView{}
	for rows.Next() {
		var postID string
		var c CommentView
		if err := rows.Scan(&postID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments[postID] = append(comments[postID], c)
	}
	return comments, nil
}

func (s *Service) loadLikeCounts(ctx context.Context, postIDs []string) (map[string]int, error) {
	if len(postIDs) == 0 {
		return map[string]int{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT post_id, COUNT(*)
		FROM likes WHERE post_id = ANY($1)
		GROUP BY post_id
	`, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var postID string
		var count int
		if err := rows.Scan(&postID, &count); err != nil {
			return nil, err
		}
		counts[postID] = count
	}
	return counts, nil
}
