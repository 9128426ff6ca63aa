package entity

import (
	"time"

	"github.com/lib/pq"
)

// Bird is a species record. HabitatIDs is aggregated from birds_habitats.
type Bird struct {
	ID                int64         `db:"id" json:"id"`
	CommonName        string        `db:"common_name" json:"commonName"`
	ScientificName    string        `db:"scientific_name" json:"scientificName"`
	ConservationModel string        `db:"conservation_model" json:"conservationModel"`
	Notes             string        `db:"notes" json:"notes"`
	FamilyID          *int64        `db:"family_id" json:"familyId,omitempty"`
	HabitatIDs        pq.Int64Array `db:"habitat_ids" json:"habitatIds"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt         *time.Time    `db:"updated_at" json:"updatedAt,omitempty"`
}
