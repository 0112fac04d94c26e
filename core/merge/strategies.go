package merge

import (
	"feed-merger/core/cache"
	"feed-merger/core/calendar"
	"feed-merger/core/graph"
)

// agencyStrategy: same id with the same name and timezone.
type agencyStrategy struct{ rebind }

func (agencyStrategy) Signature(_ *Run, c *Candidate) (any, error) {
	a := c.Entity.(*graph.Agency)
	return cache.Of([]string{a.Name, a.Timezone}), nil
}

func (agencyStrategy) Classify(run *Run, c *Candidate) (Verdict, error) {
	id := c.Entity.ID()
	if !run.target.Has(graph.KindAgency, id) {
		return Verdict{Decision: Insert}, nil
	}
	existing, err := run.TargetSignature(graph.KindAgency, id)
	if err != nil {
		return Verdict{}, err
	}
	if existing == c.Signature {
		return Verdict{Decision: Reuse, Match: id}, nil
	}
	return Verdict{Decision: Conflict, Reason: "agency name or timezone differs"}, nil
}

type stopSignature struct {
	Name string
	Lat  float64
	Lon  float64
}

// stopStrategy: same name within the distance tolerance.
type stopStrategy struct{ rebind }

func (stopStrategy) Signature(_ *Run, c *Candidate) (any, error) {
	s := c.Entity.(*graph.Stop)
	return stopSignature{Name: s.Name, Lat: s.Lat, Lon: s.Lon}, nil
}

func (stopStrategy) Classify(run *Run, c *Candidate) (Verdict, error) {
	sig := c.Signature.(stopSignature)
	id := c.Entity.ID()

	existing, collides := run.target.Lookup(graph.KindStop, id)
	if collides {
		t := existing.(*graph.Stop)
		if t.Name == sig.Name && distanceMeters(t.Lat, t.Lon, sig.Lat, sig.Lon) <= run.cfg.StopToleranceMeters {
			return Verdict{Decision: Reuse, Match: id}, nil
		}
	}

	if run.cfg.FuzzyStops {
		if match, ok := run.stops.nearest(c.Source.Handle(), sig.Name, sig.Lat, sig.Lon); ok {
			return Verdict{Decision: Reuse, Match: match, Reason: "matched by name and proximity"}, nil
		}
	}

	if collides {
		return Verdict{Decision: Conflict, Reason: "stop name or location differs"}, nil
	}
	return Verdict{Decision: Insert}, nil
}

// Stops of one source are never fuzzy matched with each other.
func (stopStrategy) inserted(run *Run, c *Candidate, e graph.Entity) {
	if !run.cfg.FuzzyStops {
		return
	}
	s := e.(*graph.Stop)
	run.stops.add(s.StopID, c.Source.Handle(), s.Name, s.Lat, s.Lon)
}

// calendarStrategy compares expanded service dates. Calendars that collide
// but denote different dates are kept apart so trips keep their service.
type calendarStrategy struct{ rebind }

func (calendarStrategy) Signature(_ *Run, c *Candidate) (any, error) {
	children := c.Source.ChildrenOf(c.SourceID, graph.KindCalendarDate)
	exceptions := make([]*graph.CalendarDate, 0, len(children))
	for _, child := range children {
		exceptions = append(exceptions, child.(*graph.CalendarDate))
	}
	return calendar.Expand(c.Entity.(*graph.Calendar), exceptions)
}

func (calendarStrategy) Classify(run *Run, c *Candidate) (Verdict, error) {
	id := c.Entity.ID()
	if !run.target.Has(graph.KindCalendar, id) {
		return Verdict{Decision: Insert}, nil
	}
	sig, err := run.TargetSignature(graph.KindCalendar, id)
	if err != nil {
		return Verdict{}, err
	}
	existing := sig.(calendar.DateSet)
	dates := c.Signature.(calendar.DateSet)
	switch {
	case existing.Equal(dates):
		return Verdict{Decision: Reuse, Match: id}, nil
	case calendar.Overlaps(existing, dates):
		return Verdict{Decision: Conflict, Reason: "overlapping service dates differ"}, nil
	default:
		return Verdict{Decision: Conflict, Reason: "disjoint service dates"}, nil
	}
}

// exactStrategy: duplicate only on an id collision with byte-equal content.
type exactStrategy struct{ rebind }

func (exactStrategy) Signature(run *Run, c *Candidate) (any, error) {
	return run.fingerprint(c)
}

func (exactStrategy) Classify(run *Run, c *Candidate) (Verdict, error) {
	kind := c.Entity.Kind()
	id := c.Entity.ID()
	if !run.target.Has(kind, id) {
		return Verdict{Decision: Insert}, nil
	}
	existing, err := run.TargetSignature(kind, id)
	if err != nil {
		return Verdict{}, err
	}
	if existing == c.Signature {
		return Verdict{Decision: Reuse, Match: id}, nil
	}
	return Verdict{Decision: Conflict, Reason: "content differs"}, nil
}
