// Package model defines the core data types shared across facetrace:
// probe requests and results, the probe error taxonomy, and face
// records with their search results.
//
// This package has no dependencies on other internal packages so that
// every component can share these types without import cycles.
package model
