package entity

import "time"

// Venue is one row of the restaurant catalogue.
type Venue struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	City             string     `json:"city"`
	Cuisine          string     `json:"cuisine"`
	Price            string     `json:"price"`
	Rating           float64    `json:"rating"`
	RatingCount      *int       `json:"rating_count,omitempty"`
	AccessWheelchair bool       `json:"access_wheelchair"`
	AccessStepFree   bool       `json:"access_step_free"`
	AccessRestroom   bool       `json:"access_restroom"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// Offers reports whether the venue provides the given accessibility feature.
func (v Venue) Offers(flag AccessFlag) bool {
	switch flag {
	case AccessWheelchair:
		return v.AccessWheelchair
	case AccessStepFree:
		return v.AccessStepFree
	case AccessRestroom:
		return v.AccessRestroom
	default:
		return false
	}
}
