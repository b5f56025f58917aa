package wizard

import (
	"math"
	"strings"
)

const (
	MinRating = 1
	MaxRating = 6
)

// Rating names one of the three condition scores.
type Rating string

const (
	StructuralDefects Rating = "structuralDefects"
	DecayMagnitude    Rating = "decayMagnitude"
	DefectIntensity   Rating = "defectIntensity"
)

type Photo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

type Address struct {
	StreetName      string `json:"streetName"`
	ApartmentNumber string `json:"apartmentNumber"`
	City            string `json:"city"`
}

// Draft accumulates a submission across screens. Ratings are zero until set.
type Draft struct {
	Address           Address  `json:"address"`
	Photo             *Photo   `json:"photo,omitempty"`
	StructuralDefects int      `json:"structuralDefects"`
	DecayMagnitude    int      `json:"decayMagnitude"`
	DefectIntensity   int      `json:"defectIntensity"`
	Description       string   `json:"description"`
	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`
	Similarity        *float64 `json:"similarity,omitempty"`
}

func NewDraft() *Draft {
	return &Draft{}
}

func (d *Draft) SetAddress(a Address) {
	d.Address = Address{
		StreetName:      strings.TrimSpace(a.StreetName),
		ApartmentNumber: strings.TrimSpace(a.ApartmentNumber),
		City:            strings.TrimSpace(a.City),
	}
}

func (d *Draft) SetPhoto(p Photo) {
	d.Photo = &p
}

// SetRating stores n for r. Out-of-range values leave the draft unchanged.
func (d *Draft) SetRating(r Rating, n int) error {
	if n < MinRating || n > MaxRating {
		return ErrRatingOutOfRange
	}
	switch r {
	case StructuralDefects:
		d.StructuralDefects = n
	case DecayMagnitude:
		d.DecayMagnitude = n
	case DefectIntensity:
		d.DefectIntensity = n
	default:
		return ErrUnknownRating
	}
	return nil
}

func (d *Draft) SetDescription(text string) {
	d.Description = strings.TrimSpace(text)
}

func (d *Draft) SetLocation(lat, lon float64) {
	d.Latitude, d.Longitude = &lat, &lon
}

func (d *Draft) SetSimilarity(score float64) {
	d.Similarity = &score
}

func (d *Draft) ratingsSet() bool {
	return d.StructuralDefects != 0 && d.DecayMagnitude != 0 && d.DefectIntensity != 0
}

// Mean is the average rating, zero until all three are set.
func (d *Draft) Mean() float64 {
	if !d.ratingsSet() {
		return 0
	}
	return float64(d.StructuralDefects+d.DecayMagnitude+d.DefectIntensity) / 3
}

// FinalScore is Mean rounded to a whole score.
func (d *Draft) FinalScore() int {
	return int(math.Round(d.Mean()))
}

func (d *Draft) missingAddress() []string {
	var missing []string
	if d.Address.StreetName == "" {
		missing = append(missing, "streetName")
	}
	if d.Address.ApartmentNumber == "" {
		missing = append(missing, "apartmentNumber")
	}
	if d.Address.City == "" {
		missing = append(missing, "city")
	}
	return missing
}

func (d *Draft) missingPhoto() []string {
	if d.Photo == nil || len(d.Photo.Data) == 0 {
		return []string{"photo"}
	}
	return nil
}

func (d *Draft) missingRatings() []string {
	var missing []string
	if d.StructuralDefects == 0 {
		missing = append(missing, string(StructuralDefects))
	}
	if d.DecayMagnitude == 0 {
		missing = append(missing, string(DecayMagnitude))
	}
	if d.DefectIntensity == 0 {
		missing = append(missing, string(DefectIntensity))
	}
	return missing
}

// Missing lists the required fields not yet filled in.
func (d *Draft) Missing() []string {
	missing := d.missingAddress()
	missing = append(missing, d.missingPhoto()...)
	return append(missing, d.missingRatings()...)
}

func (d *Draft) Complete() bool {
	return len(d.Missing()) == 0
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	c := *d
	if d.Photo != nil {
		p := *d.Photo
		p.Data = append([]byte(nil), d.Photo.Data...)
		c.Photo = &p
	}
	if d.Latitude != nil {
		v := *d.Latitude
		c.Latitude = &v
	}
	if d.Longitude != nil {
		v := *d.Longitude
		c.Longitude = &v
	}
	if d.Similarity != nil {
		v := *d.Similarity
		c.Similarity = &v
	}
	return &c
}
