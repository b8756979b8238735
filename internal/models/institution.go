package models

import "time"

// WeightingPolicy selects how a term average is derived from subject percentages.
type WeightingPolicy string

const (
	// WeightingSimple divides the total by the number of required subjects.
	WeightingSimple WeightingPolicy = "simple"
	// WeightingCredit weights each subject percentage by its credit hours.
	WeightingCredit WeightingPolicy = "credit_weighted"
)

// Institution is the tenant scope for scales, subjects and results.
type Institution struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	WeightingPolicy WeightingPolicy `gorm:"size:32;not null;default:simple" json:"weighting_policy"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AveragePolicy returns the configured policy, defaulting to the simple mean.
func (i Institution) AveragePolicy() WeightingPolicy {
	if i.WeightingPolicy == WeightingCredit {
		return WeightingCredit
	}
	return WeightingSimple
}
