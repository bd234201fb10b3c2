// Package review accepts customer reviews for the public storefront.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/princesspalace/palace/internal/docstore"
)

// Limits on a submitted review.
const (
	MinNameLength = 2
	MinTextLength = 10
	MinRating     = 1
	MaxRating     = 5
)

var (
	// ErrInvalidName is returned when the reviewer name is too short.
	ErrInvalidName = errors.New("name must be at least 2 characters")

	// ErrInvalidRating is returned for a rating outside 1 to 5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrTextTooShort is returned when the review body is too short.
	ErrTextTooShort = errors.New("review must be at least 10 characters")
)

// Review is a stored customer review.
type Review struct {
	ID         string    `json:"id,omitempty"`
	Name       string    `json:"name"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"reviewText"`
	IsApproved bool      `json:"isApproved"`
	DatePosted time.Time `json:"datePosted"`
}

// Submission is a review as entered by a visitor.
type Submission struct {
	Name       string
	Rating     int
	ReviewText string
}

// Validate checks a submission and returns the first violation.
func (s Submission) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(s.Name)) < MinNameLength {
		return ErrInvalidName
	}
	if s.Rating < MinRating || s.Rating > MaxRating {
		return ErrInvalidRating
	}
	if utf8.RuneCountInString(strings.TrimSpace(s.ReviewText)) < MinTextLength {
		return ErrTextTooShort
	}
	return nil
}

// Service stores reviews.
type Service struct {
	store docstore.Store
	now   func() time.Time
}

// NewService creates a review Service backed by store.
func NewService(store docstore.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Submit validates and stores a review. Reviews are approved on submission.
func (s *Service) Submit(ctx context.Context, actor docstore.Actor, sub Submission) (*Review, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	r := &Review{
		Name:       strings.TrimSpace(sub.Name),
		Rating:     sub.Rating,
		ReviewText: strings.TrimSpace(sub.ReviewText),
		IsApproved: true,
		DatePosted: s.now().UTC(),
	}
	fields, err := docstore.ToFields(r)
	if err != nil {
		return nil, err
	}
	id, err := s.store.Add(ctx, actor, docstore.Reviews, fields)
	if err != nil {
		return nil, fmt.Errorf("storing review: %w", err)
	}
	r.ID = id

	slog.Info("review posted", "reviewId", id, "rating", r.Rating)
	return r, nil
}

// Approved returns the query the storefront binds to show approved reviews.
func Approved() docstore.Query {
	return docstore.Collection(docstore.Reviews).
		Where("isApproved", docstore.Equal, true).
		OrderBy("datePosted", true)
}

// List returns a one-shot snapshot of the approved reviews, newest first.
func (s *Service) List(ctx context.Context, actor docstore.Actor) ([]Review, error) {
	docs, err := docstore.Once(ctx, s.store, actor, Approved())
	if err != nil {
		return nil, err
	}
	reviews := make([]Review, 0, len(docs))
	for _, d := range docs {
		var r Review
		if err := docstore.Decode(d.Data, &r); err != nil {
			slog.Warn("skipping undecodable review", "reviewId", d.ID, "error", err)
			continue
		}
		r.ID = d.ID
		reviews = append(reviews, r)
	}
	return reviews, nil
}
