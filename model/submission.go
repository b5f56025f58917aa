package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission types
const (
	TypeTenant   = "tenant"
	TypeEmployee = "employee"
)

// Rating bounds for the three condition scores
const (
	RatingMin = 1
	RatingMax = 6
)

// Submission is a persisted maintenance assessment
type Submission struct {
	ID                string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Type              string    `json:"type" gorm:"not null;index"`
	StreetName        string    `json:"streetName" gorm:"not null"`
	ApartmentNumber   string    `json:"apartmentNumber" gorm:"not null"`
	City              string    `json:"city" gorm:"not null"`
	StructuralDefects int       `json:"structuralDefects" gorm:"not null;check:structural_defects >= 1 AND structural_defects <= 6"`
	DecayMagnitude    int       `json:"decayMagnitude" gorm:"not null;check:decay_magnitude >= 1 AND decay_magnitude <= 6"`
	DefectIntensity   int       `json:"defectIntensity" gorm:"not null;check:defect_intensity >= 1 AND defect_intensity <= 6"`
	Description       string    `json:"description" gorm:"type:text"`
	PhotoURL          string    `json:"photoUrl"`
	PhotoKey          string    `json:"-"`
	PhotoContentType  string    `json:"-"`
	Date              time.Time `json:"date" gorm:"not null;index"`
	SubmittedBy       string    `json:"submittedBy,omitempty"`
	UserID            *string   `json:"userId,omitempty" gorm:"type:varchar(36);index"`
	Latitude          *float64  `json:"latitude,omitempty"`
	Longitude         *float64  `json:"longitude,omitempty"`
	Reports           []Report  `json:"reports,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Date.IsZero() {
		s.Date = time.Now().UTC()
	}
	return nil
}

// ValidType reports whether t is a submission type
func ValidType(t string) bool {
	return t == TypeTenant || t == TypeEmployee
}

// ValidRating reports whether n is inside [RatingMin, RatingMax]
func ValidRating(n int) bool {
	return n >= RatingMin && n <= RatingMax
}

// MeanRating is the average of the three condition ratings
func (s *Submission) MeanRating() float64 {
	return float64(s.StructuralDefects+s.DecayMagnitude+s.DefectIntensity) / 3
}

// FinalScore rounds MeanRating to the nearest whole score
func (s *Submission) FinalScore() int {
	return int(math.Round(s.MeanRating()))
}
