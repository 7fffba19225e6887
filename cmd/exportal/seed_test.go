package main

import (
	"testing"
)

func TestValidateSeed(t *testing.T) {
	valid := seedFile{
		Jumbotron: &seedJumbotron{Heading: "Quality exports"},
		Carousel: []seedSlide{
			{Heading: "Fresh produce", Position: 0},
			{Heading: "Worldwide shipping", Position: 1},
		},
	}
	if err := validateSeed(valid); err != nil {
		t.Fatalf("valid seed rejected: %v", err)
	}

	if err := validateSeed(seedFile{Jumbotron: &seedJumbotron{Heading: "  "}}); err == nil {
		t.Fatal("expected blank jumbotron heading to be rejected")
	}

	if err := validateSeed(seedFile{Carousel: []seedSlide{{Heading: ""}}}); err == nil {
		t.Fatal("expected blank slide heading to be rejected")
	}

	if err := validateSeed(seedFile{Carousel: []seedSlide{{Heading: "x", Position: -1}}}); err == nil {
		t.Fatal("expected negative position to be rejected")
	}
}
