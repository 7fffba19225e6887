package models

import "time"

// CarouselItem is one slide on the homepage carousel.
type CarouselItem struct {
	ID         string    `json:"id"`
	Heading    string    `json:"heading"`
	Subheading string    `json:"subheading,omitempty"`
	Position   int       `json:"position"`
	ImageRef   string    `json:"image,omitempty"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Jumbotron is the singleton homepage banner. There is exactly one row;
// its image slot is overwritten in place on replacement.
type Jumbotron struct {
	Heading   string    `json:"heading"`
	Tagline   string    `json:"tagline,omitempty"`
	ImageRef  string    `json:"image,omitempty"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
