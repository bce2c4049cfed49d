package domain

import "time"

// Review is a user's rating of a tour. A user may review a tour at most once.
type Review struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tour_id"`
	AuthorID  string    `json:"author_id"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// AuthorName and AuthorPhoto are denormalized on read for display.
	AuthorName  string `json:"author_name,omitempty"`
	AuthorPhoto string `json:"author_photo,omitempty"`
}

// RatingStats is the aggregate of all reviews for one tour.
type RatingStats struct {
	Count   int
	Average float64
}

// DefaultRatingsAverage is the rating shown for a tour with no reviews yet.
const DefaultRatingsAverage = 4.5
