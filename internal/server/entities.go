package server

import (
	"exportal/internal/blobstore"
	"exportal/internal/reconcile"
)

// Slot layouts per entity. The slot name doubles as the multipart
// field name for uploads and the retained_<slot> form key.
var (
	certificateSlots = []reconcile.Slot{
		{Name: "src", Cardinality: reconcile.CardinalitySingle, Naming: blobstore.NamingRandom},
		{Name: "logo", Cardinality: reconcile.CardinalitySingle, Naming: blobstore.NamingRandom},
	}

	productSlots = []reconcile.Slot{
		{Name: "images", Cardinality: reconcile.CardinalityMulti, Naming: blobstore.NamingRandom},
	}

	carouselSlots = []reconcile.Slot{
		{Name: "image", Cardinality: reconcile.CardinalitySingle, Naming: blobstore.NamingRandom},
	}

	// The banner keeps a stable file name so its public URL never
	// changes; replacement overwrites in place.
	jumbotronSlots = []reconcile.Slot{
		{Name: "image", Cardinality: reconcile.CardinalitySingle, Naming: blobstore.NamingDeterministic, FixedName: "banner"},
	}
)
