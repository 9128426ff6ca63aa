package entity

import "time"

// Sighting records one observation of a bird at a point in time and space.
type Sighting struct {
	ID        int64     `db:"id" json:"id"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	SightedAt time.Time `db:"sighted_at" json:"sightingDateTime"`
	Notes     string    `db:"notes" json:"notes"`
	BirdID    int64     `db:"bird_id" json:"idBird"`
	UserID    int64     `db:"user_id" json:"idUser"`
	HabitatID int64     `db:"habitat_id" json:"idHabitat"`
	CountryID int64     `db:"country_id" json:"idCountry"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
