package facematch

// Match scans the gallery for the entry closest to the query descriptor and
// returns it as a candidate when its confidence reaches the threshold.
//
// The scan is linear and keeps the minimum-distance entry; on equal distance
// the first encountered entry wins, so results are stable for a given gallery
// order. An empty gallery or a best candidate below the threshold yields
// (nil, nil) - no match is a normal outcome, not an error.
//
// Complexity is O(len(gallery) * dim) per query. Galleries hold one entry per
// enrolled person, so a flat scan is fine at current scale; an ANN index
// would only pay off with orders of magnitude more enrollments.
func Match(query []float32, gallery []GalleryEntry, threshold float64) (*MatchCandidate, error) {
	if len(gallery) == 0 {
		return nil, nil
	}

	var best *MatchCandidate
	for i := range gallery {
		entry := &gallery[i]
		distance, err := EuclideanDistance(query, entry.Descriptor)
		if err != nil {
			return nil, err
		}
		if best == nil || distance < best.Distance {
			best = &MatchCandidate{
				PersonID: entry.PersonID,
				Distance: distance,
			}
		}
	}

	best.Confidence = Confidence(best.Distance)
	if best.Confidence < threshold {
		return nil, nil
	}
	return best, nil
}
