package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"exportal/internal/config"
	"exportal/internal/reconcile"
	"exportal/internal/store"
)

// seedFile is the YAML shape the seed command consumes. Images cannot
// be seeded from YAML; they are uploaded through the admin API.
type seedFile struct {
	Jumbotron *seedJumbotron `yaml:"jumbotron"`
	Carousel  []seedSlide    `yaml:"carousel"`
}

type seedJumbotron struct {
	Heading string `yaml:"heading"`
	Tagline string `yaml:"tagline"`
}

type seedSlide struct {
	Heading    string `yaml:"heading"`
	Subheading string `yaml:"subheading"`
	Position   int    `yaml:"position"`
}

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load homepage content from a YAML file",
		Args:  requireExactlyArgs(1, "seed file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var seed seedFile
			if err := yaml.Unmarshal(raw, &seed); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}
			if err := validateSeed(seed); err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				created := 0
				for _, slide := range seed.Carousel {
					fields := store.CarouselFields{
						Heading:    strings.TrimSpace(slide.Heading),
						Subheading: strings.TrimSpace(slide.Subheading),
						Position:   slide.Position,
					}
					if _, err := st.CreateCarouselItem(cmd.Context(), fields, nil); err != nil {
						return fmt.Errorf("seed carousel slide %q: %w", fields.Heading, err)
					}
					created++
				}

				jumbotronUpdated := false
				if seed.Jumbotron != nil {
					current, err := st.GetJumbotron(cmd.Context())
					if err != nil {
						return err
					}
					fields := store.JumbotronFields{
						Heading: strings.TrimSpace(seed.Jumbotron.Heading),
						Tagline: strings.TrimSpace(seed.Jumbotron.Tagline),
					}
					// Keep whatever banner image is already in place.
					var refs reconcile.RefSet
					if current.ImageRef != "" {
						refs = reconcile.RefSet{"image": {current.ImageRef}}
					}
					if _, err := st.UpdateJumbotron(cmd.Context(), current.Version, fields, refs); err != nil {
						return fmt.Errorf("seed jumbotron: %w", err)
					}
					jumbotronUpdated = true
				}

				if *jsonOutput {
					return writeJSON(map[string]any{
						"carousel_created":  created,
						"jumbotron_updated": jumbotronUpdated,
					})
				}
				return writePlain("created %d carousel slides, jumbotron updated: %t\n", created, jumbotronUpdated)
			})
		},
	}
}

func validateSeed(seed seedFile) error {
	if seed.Jumbotron != nil && strings.TrimSpace(seed.Jumbotron.Heading) == "" {
		return fmt.Errorf("jumbotron heading is required")
	}
	for i, slide := range seed.Carousel {
		if strings.TrimSpace(slide.Heading) == "" {
			return fmt.Errorf("carousel slide %d: heading is required", i+1)
		}
		if slide.Position < 0 {
			return fmt.Errorf("carousel slide %d: position must not be negative", i+1)
		}
	}
	return nil
}
