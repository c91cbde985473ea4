package domain

import (
	"reflect"
	"testing"
)

func avail(pairs map[Weekday][]LocalInterval) map[Weekday][]LocalInterval {
	return pairs
}

func TestIntersectAvailability_TwoPractitioners(t *testing.T) {
	p1 := avail(map[Weekday][]LocalInterval{
		Monday: {{Start: 540, End: 720}}, // 09:00-12:00
	})
	p2 := avail(map[Weekday][]LocalInterval{
		Monday: {{Start: 600, End: 840}}, // 10:00-14:00
	})

	got := IntersectAvailability([]map[Weekday][]LocalInterval{p1, p2})
	want := map[Weekday][]LocalInterval{
		Monday: {{Start: 600, End: 720}}, // 10:00-12:00
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("IntersectAvailability = %v, want %v", got, want)
	}
}

func TestIntersectAvailability_DayDroppedWhenAnyPractitionerAbsent(t *testing.T) {
	p1 := avail(map[Weekday][]LocalInterval{
		Monday:  {{Start: 540, End: 720}},
		Tuesday: {{Start: 540, End: 720}},
	})
	p2 := avail(map[Weekday][]LocalInterval{
		Monday: {{Start: 540, End: 720}},
	})

	got := IntersectAvailability([]map[Weekday][]LocalInterval{p1, p2})
	if _, ok := got[Tuesday]; ok {
		t.Fatalf("tuesday must be dropped when one practitioner has no windows")
	}
	if len(got[Monday]) != 1 {
		t.Fatalf("monday windows = %v, want one interval", got[Monday])
	}
}

func TestIntersectAvailability_ThreeWayFoldNarrowsCorrectly(t *testing.T) {
	// A pairwise-only check would accept 10:00-11:00 for p1/p2 even though p3
	// only covers 10:30 onward; the fold must narrow to 10:30-11:00.
	p1 := avail(map[Weekday][]LocalInterval{Wednesday: {{Start: 600, End: 660}}})
	p2 := avail(map[Weekday][]LocalInterval{Wednesday: {{Start: 540, End: 720}}})
	p3 := avail(map[Weekday][]LocalInterval{Wednesday: {{Start: 630, End: 780}}})

	got := IntersectAvailability([]map[Weekday][]LocalInterval{p1, p2, p3})
	want := map[Weekday][]LocalInterval{
		Wednesday: {{Start: 630, End: 660}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("IntersectAvailability = %v, want %v", got, want)
	}
}

func TestIntersectAvailability_SplitShiftsProduceMultipleWindows(t *testing.T) {
	p1 := avail(map[Weekday][]LocalInterval{
		Monday: {{Start: 540, End: 720}, {Start: 780, End: 1020}}, // 09-12, 13-17
	})
	p2 := avail(map[Weekday][]LocalInterval{
		Monday: {{Start: 600, End: 900}}, // 10-15
	})

	got := IntersectAvailability([]map[Weekday][]LocalInterval{p1, p2})
	want := map[Weekday][]LocalInterval{
		Monday: {{Start: 600, End: 720}, {Start: 780, End: 900}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("IntersectAvailability = %v, want %v", got, want)
	}
}

func TestIntersectAvailability_OrderIndependentAndSubsetOfInputs(t *testing.T) {
	p1 := avail(map[Weekday][]LocalInterval{
		Friday: {{Start: 480, End: 660}, {Start: 700, End: 900}},
	})
	p2 := avail(map[Weekday][]LocalInterval{
		Friday: {{Start: 540, End: 750}},
	})
	p3 := avail(map[Weekday][]LocalInterval{
		Friday: {{Start: 500, End: 1020}},
	})

	forward := IntersectAvailability([]map[Weekday][]LocalInterval{p1, p2, p3})
	backward := IntersectAvailability([]map[Weekday][]LocalInterval{p3, p2, p1})
	if !reflect.DeepEqual(forward, backward) {
		t.Fatalf("result depends on input order: %v vs %v", forward, backward)
	}

	for _, out := range forward[Friday] {
		contained := false
		for _, in := range p1[Friday] {
			if out.Start >= in.Start && out.End <= in.End {
				contained = true
			}
		}
		if !contained {
			t.Fatalf("output %v extends beyond p1's input intervals", out)
		}
	}
}

func TestIntersectAvailability_EmptyInput(t *testing.T) {
	if got := IntersectAvailability(nil); len(got) != 0 {
		t.Fatalf("IntersectAvailability(nil) = %v, want empty", got)
	}
}

func TestMergeIntervals(t *testing.T) {
	got := MergeIntervals([]LocalInterval{
		{Start: 700, End: 800},
		{Start: 540, End: 600},
		{Start: 600, End: 660},
		{Start: 750, End: 780},
	})
	want := []LocalInterval{
		{Start: 540, End: 660},
		{Start: 700, End: 800},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeIntervals = %v, want %v", got, want)
	}
}
