// Package avatar extracts candidate avatar image URLs from profile
// pages. Extraction runs as an ordered cascade of heuristic phases;
// a phase only runs when earlier phases found nothing, except the
// social meta-tag phase, which always contributes.
package avatar
