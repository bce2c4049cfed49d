// Package main implements a standalone seed script that populates the
// tourbook database with a realistic development data set: staff and
// customer accounts, a tour catalog with start locations and departure
// dates, and reviews spread across the catalog.
//
// Run: go run ./scripts/seed
//
// Re-runs are idempotent: IDs are derived deterministically from stable
// names, and every insert carries ON CONFLICT DO NOTHING.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// deterministicUUID produces a stable UUID-shaped string from a namespace and
// a name so that re-runs always produce the same row IDs.
func deterministicUUID(namespace, name string) string {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	hex := fmt.Sprintf("%x", h[:16])
	return fmt.Sprintf("%s-%s-4%s-%x%s-%s",
		hex[0:8],
		hex[8:12],
		hex[13:16],
		0x8|(h[8]&0x3),
		hex[17:20],
		hex[20:32],
	)
}

type userDef struct {
	Name  string
	Email string
	Role  string
}

var users = []userDef{
	{"Admin Istrator", "admin@tourbook.io", "admin"},
	{"Steve Miller", "steve@tourbook.io", "lead-guide"},
	{"Miyah Myles", "miyah@tourbook.io", "lead-guide"},
	{"Leo Gillespie", "leo@tourbook.io", "guide"},
	{"Jennifer Hardy", "jennifer@tourbook.io", "guide"},
	{"Kate Morrison", "kate@tourbook.io", "guide"},
	{"Lourdes Browning", "lourdes@example.com", "user"},
	{"Ben Hadley", "ben@example.com", "user"},
	{"Laura Wilson", "laura@example.com", "user"},
	{"Max Smith", "max@example.com", "user"},
	{"Eliana Stout", "eliana@example.com", "user"},
	{"Cristian Vega", "cristian@example.com", "user"},
	{"Ayla Cornell", "ayls@example.com", "user"},
	{"John Riley", "john@example.com", "user"},
	{"Lisa Brown", "lisa@example.com", "user"},
	{"Jessica Williams", "jessica@example.com", "user"},
}

type tourDef struct {
	Name         string
	Slug         string
	PriceCents   int64
	Discount     int64 // cents, 0 means no discount
	Duration     int
	GroupSize    int
	Difficulty   string
	Summary      string
	Description  string
	Lat          float64
	Lng          float64
	Address      string
	LocationDesc string
}

var tours = []tourDef{
	{"The Forest Hiker", "the-forest-hiker", 39700, 0, 5, 25, "easy",
		"Breathtaking hike through the Canadian Banff National Park",
		"Five days of guided hiking through old growth forest, with nights in riverside lodges.",
		49.2827, -123.1207, "Vancouver, BC", "Trailhead meeting point"},
	{"The Sea Explorer", "the-sea-explorer", 49700, 0, 7, 15, "medium",
		"Exploring the jaw-dropping US east coast by foot and by boat",
		"A week of coastal walking and island hopping along the Atlantic seaboard.",
		25.7617, -80.1918, "Miami, FL", "Harbor dock 4"},
	{"The Snow Adventurer", "the-snow-adventurer", 99700, 0, 4, 10, "difficult",
		"Exciting adventure in the snow with snowboarding and skiing",
		"Off-piste days with certified mountain guides, avalanche training included.",
		39.1911, -106.8175, "Aspen, CO", "Aspen Highlands base"},
	{"The City Wanderer", "the-city-wanderer", 119700, 10000, 9, 20, "easy",
		"Living the life of Wanderlust in the US' most beautiful cities",
		"Nine days across three cities with local guides and food tours.",
		40.7128, -74.0060, "New York, NY", "Midtown meeting point"},
	{"The Park Camper", "the-park-camper", 149700, 0, 10, 15, "medium",
		"Breathing in Nature in America's most spectacular National Parks",
		"Ten days of camping across Yellowstone and Grand Teton.",
		44.4280, -110.5885, "Yellowstone, WY", "North entrance"},
	{"The Sports Lover", "the-sports-lover", 299700, 0, 14, 8, "difficult",
		"Surfing, skating, parajumping, rock climbing and more, all in one tour",
		"Two weeks of adrenaline with pro instructors for every discipline.",
		34.0522, -118.2437, "Los Angeles, CA", "Venice Beach boardwalk"},
	{"The Wine Taster", "the-wine-taster", 199700, 0, 5, 12, "easy",
		"Exquisite wines, scenic views, exclusive barrel tastings",
		"Five days through Napa and Sonoma with private cellar visits.",
		38.2975, -122.2869, "Napa, CA", "Napa welcome center"},
	{"The Star Gazer", "the-star-gazer", 299700, 0, 9, 8, "medium",
		"The most remote and stunningly beautiful night skies",
		"Nine nights in dark-sky reserves with telescopes and astro photographers.",
		36.5054, -117.0794, "Death Valley, CA", "Furnace Creek visitor center"},
	{"The Northern Lights", "the-northern-lights", 149700, 0, 3, 12, "medium",
		"Enjoy the Northern Lights in one of the best places in the world",
		"Three nights of aurora hunting with heated camps and local trackers.",
		64.8378, -147.7164, "Fairbanks, AK", "Downtown pickup"},
}

var reviewTexts = []string{
	"Loved every minute of it, the guides were fantastic.",
	"Cracking tour, would book again in a heartbeat.",
	"Good value for money, though the pace was brisk.",
	"The scenery alone is worth the price.",
	"Well organized from start to finish.",
	"Our guide knew every trail and every story behind it.",
	"Food and lodging exceeded expectations.",
	"A couple of rainy days but the team kept spirits high.",
}

func main() {
	ctx := context.Background()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("POSTGRES_USER", "tourbook"),
		getEnv("POSTGRES_PASSWORD", "tourbook_secret"),
		getEnv("POSTGRES_HOST", "localhost"),
		getEnv("POSTGRES_PORT", "5432"),
		getEnv("POSTGRES_DB", "tourbook_db"),
		getEnv("POSTGRES_SSL_MODE", "disable"),
	)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}

	// One hash shared by every seed account. Password is "pass1234".
	hash, err := bcrypt.GenerateFromPassword([]byte(getEnv("SEED_PASSWORD", "pass1234")), 12)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	now := time.Now().UTC()

	// -------------------------------------------------------------------
	// 1. Users
	// -------------------------------------------------------------------
	log.Println("Seeding users...")
	for _, u := range users {
		_, err := pool.Exec(ctx, `
			INSERT INTO users (id, name, email, photo, role, password_hash, active, created_at, updated_at)
			VALUES ($1, $2, $3, 'default.jpg', $4, $5, true, $6, $6)
			ON CONFLICT DO NOTHING`,
			deterministicUUID("user", u.Email), u.Name, u.Email, u.Role, string(hash), now,
		)
		if err != nil {
			log.Fatalf("insert user %s: %v", u.Email, err)
		}
	}
	log.Printf("  Inserted %d users (password %q).", len(users), "pass1234")

	// -------------------------------------------------------------------
	// 2. Tours
	// -------------------------------------------------------------------
	log.Println("Seeding tours...")
	rng := rand.New(rand.NewSource(42))
	for i, td := range tours {
		location, _ := json.Marshal(map[string]any{
			"latitude":    td.Lat,
			"longitude":   td.Lng,
			"address":     td.Address,
			"description": td.LocationDesc,
		})

		// Three departures spread over the next year.
		dates := []time.Time{
			now.AddDate(0, 1+i%3, 0),
			now.AddDate(0, 4+i%3, 0),
			now.AddDate(0, 8+i%3, 0),
		}

		var discount *int64
		if td.Discount > 0 {
			d := td.Discount
			discount = &d
		}

		_, err := pool.Exec(ctx, `
			INSERT INTO tours (id, name, slug, price, price_discount, duration_days, max_group_size,
			                   difficulty, ratings_average, ratings_count, summary, description,
			                   image_cover, images, start_dates, secret, start_location, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 4.5, 0, $9, $10, $11, $12, $13, false, $14, $15, $15)
			ON CONFLICT DO NOTHING`,
			deterministicUUID("tour", td.Slug), td.Name, td.Slug, td.PriceCents, discount,
			td.Duration, td.GroupSize, td.Difficulty, td.Summary, td.Description,
			td.Slug+"-cover.jpg", []string{td.Slug + "-1.jpg", td.Slug + "-2.jpg", td.Slug + "-3.jpg"},
			dates, location, now,
		)
		if err != nil {
			log.Fatalf("insert tour %s: %v", td.Slug, err)
		}
	}
	log.Printf("  Inserted %d tours.", len(tours))

	// -------------------------------------------------------------------
	// 3. Reviews
	// -------------------------------------------------------------------
	log.Println("Seeding reviews...")
	customers := users[6:]
	reviewCount := 0
	for _, td := range tours {
		tourID := deterministicUUID("tour", td.Slug)

		// 4-7 reviewers per tour, at most one review per customer per tour.
		n := 4 + rng.Intn(4)
		perm := rng.Perm(len(customers))
		ratingSum := 0
		for _, ci := range perm[:n] {
			c := customers[ci]
			rating := 3 + rng.Intn(3)
			ratingSum += rating
			_, err := pool.Exec(ctx, `
				INSERT INTO reviews (id, tour_id, author_id, rating, content, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $6)
				ON CONFLICT DO NOTHING`,
				deterministicUUID("review", td.Slug+":"+c.Email), tourID,
				deterministicUUID("user", c.Email), rating,
				reviewTexts[rng.Intn(len(reviewTexts))], now,
			)
			if err != nil {
				log.Fatalf("insert review for %s: %v", td.Slug, err)
			}
			reviewCount++
		}

		// Keep the stored aggregate consistent with the inserted reviews.
		avg := float64(ratingSum) / float64(n)
		if _, err := pool.Exec(ctx,
			`UPDATE tours SET ratings_average = round($1::numeric, 1), ratings_count = $2 WHERE id = $3`,
			avg, n, tourID,
		); err != nil {
			log.Fatalf("update rating aggregate for %s: %v", td.Slug, err)
		}
	}
	log.Printf("  Inserted %d reviews.", reviewCount)

	log.Printf("Seed complete! %d users, %d tours, %d reviews.", len(users), len(tours), reviewCount)
}
