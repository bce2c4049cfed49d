// Package postgres contains the pgx-backed implementations of the
// repository interfaces.
package postgres

import "strings"

// tourColumns is the fixed select list for tour rows. Query-string
// projection is applied at the response boundary, never by widening or
// narrowing this list with client input.
const tourColumns = `id, name, slug, price, price_discount, duration_days, max_group_size, difficulty,
	       ratings_average, ratings_count, summary, description, image_cover, images, start_dates,
	       secret, start_location, created_at, updated_at`

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
