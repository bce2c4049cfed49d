package domain

import (
	"time"
)

// Difficulty constants define the allowed tour difficulty values.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// IsValidDifficulty checks whether the given string is a valid difficulty.
func IsValidDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyDifficult
}

// Location is a geographic point attached to a tour.
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Tour represents a bookable tour in the catalog.
type Tour struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Slug           string      `json:"slug"`
	Price          int64       `json:"price"`
	PriceDiscount  *int64      `json:"price_discount,omitempty"`
	DurationDays   int         `json:"duration_days"`
	MaxGroupSize   int         `json:"max_group_size"`
	Difficulty     string      `json:"difficulty"`
	RatingsAverage float64     `json:"ratings_average"`
	RatingsCount   int         `json:"ratings_count"`
	Summary        string      `json:"summary"`
	Description    string      `json:"description,omitempty"`
	ImageCover     string      `json:"image_cover"`
	Images         []string    `json:"images,omitempty"`
	StartDates     []time.Time `json:"start_dates,omitempty"`
	Secret         bool        `json:"-"`
	StartLocation  *Location   `json:"start_location,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// EffectivePrice returns the discounted price when a discount is set.
func (t *Tour) EffectivePrice() int64 {
	if t.PriceDiscount != nil {
		return *t.PriceDiscount
	}
	return t.Price
}

// TourStats is an aggregate over tours grouped by difficulty.
type TourStats struct {
	Difficulty   string  `json:"difficulty"`
	TourCount    int     `json:"tour_count"`
	RatingsCount int     `json:"ratings_count"`
	AvgRating    float64 `json:"avg_rating"`
	AvgPrice     float64 `json:"avg_price"`
	MinPrice     int64   `json:"min_price"`
	MaxPrice     int64   `json:"max_price"`
}

// MonthlyPlanEntry is the number of tours starting in a given month of a year.
type MonthlyPlanEntry struct {
	Month     int      `json:"month"`
	TourCount int      `json:"tour_count"`
	TourNames []string `json:"tour_names"`
}

// TourDistance is a tour paired with its distance from a reference point.
// Distance is in the unit the caller asked for.
type TourDistance struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	Distance float64 `json:"distance"`
}
