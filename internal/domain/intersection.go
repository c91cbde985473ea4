package domain

import "sort"

// IntersectAvailability computes, per weekday, the windows during which every
// practitioner in the input is simultaneously available. A day contributes
// nothing unless every practitioner has at least one interval on it. The
// result is canonical: sorted, merged, and independent of input ordering, so
// running it twice yields identical output.
func IntersectAvailability(byPractitioner []map[Weekday][]LocalInterval) map[Weekday][]LocalInterval {
	out := make(map[Weekday][]LocalInterval)
	if len(byPractitioner) == 0 {
		return out
	}

	for wd := Monday; wd <= Sunday; wd++ {
		lists := make([][]LocalInterval, 0, len(byPractitioner))
		covered := true
		for _, m := range byPractitioner {
			ivs := m[wd]
			if len(ivs) == 0 {
				covered = false
				break
			}
			lists = append(lists, ivs)
		}
		if !covered {
			continue
		}
		if merged := intersectDay(lists); len(merged) > 0 {
			out[wd] = merged
		}
	}

	return out
}

// intersectDay folds every candidate interval through every other
// practitioner's list. The working set narrows at each fold step; a candidate
// that finds no counterpart at some step is discarded entirely rather than
// emitted partially intersected.
func intersectDay(lists [][]LocalInterval) []LocalInterval {
	var results []LocalInterval

	for i, list := range lists {
		for _, candidate := range list {
			if !candidate.Valid() {
				continue
			}
			working := []LocalInterval{candidate}
			for j, other := range lists {
				if j == i {
					continue
				}
				var narrowed []LocalInterval
				for _, w := range working {
					for _, counterpart := range other {
						if iv, ok := w.Intersect(counterpart); ok {
							narrowed = append(narrowed, iv)
						}
					}
				}
				if len(narrowed) == 0 {
					working = nil
					break
				}
				working = narrowed
			}
			results = append(results, working...)
		}
	}

	return MergeIntervals(results)
}

// MergeIntervals sorts intervals and coalesces any pair where one's end
// reaches the next one's start. The input slice is not modified.
func MergeIntervals(ivs []LocalInterval) []LocalInterval {
	if len(ivs) == 0 {
		return nil
	}

	sorted := make([]LocalInterval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := make([]LocalInterval, 0, len(sorted))
	current := sorted[0]
	for _, iv := range sorted[1:] {
		if current.End >= iv.Start {
			if iv.End > current.End {
				current.End = iv.End
			}
			continue
		}
		out = append(out, current)
		current = iv
	}
	out = append(out, current)

	return out
}
