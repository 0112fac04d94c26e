package calendar

import (
	"fmt"
	"slices"
	"time"

	"feed-merger/core/graph"
	"feed-merger/core/identity"
)

// DateSet is a sorted set of service dates.
type DateSet []Date

// Expand computes the dates on which a calendar is active: its weekday
// pattern over [StartDate, EndDate], then every exception in order, adding
// or removing its date whether or not it falls inside the range.
func Expand(c *graph.Calendar, exceptions []*graph.CalendarDate) (DateSet, error) {
	active := make(map[Date]struct{})

	if c.HasPattern {
		start, err := ParseDate(c.StartDate)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", c.ServiceID, err)
		}
		end, err := ParseDate(c.EndDate)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", c.ServiceID, err)
		}
		if end < start {
			return nil, fmt.Errorf("calendar %s: end date %s before start date %s", c.ServiceID, end, start)
		}
		for d := start; d <= end; d = d.Next() {
			if c.Days[weekdayIndex(d.Weekday())] {
				active[d] = struct{}{}
			}
		}
	}

	for _, ex := range exceptions {
		d, err := ParseDate(ex.Date)
		if err != nil {
			return nil, fmt.Errorf("calendar %s exception: %w", c.ServiceID, err)
		}
		switch ex.ExceptionType {
		case graph.ServiceAdded:
			active[d] = struct{}{}
		case graph.ServiceRemoved:
			delete(active, d)
		default:
			return nil, fmt.Errorf("calendar %s exception %s: unknown exception type %d", c.ServiceID, ex.Date, ex.ExceptionType)
		}
	}

	set := make(DateSet, 0, len(active))
	for d := range active {
		set = append(set, d)
	}
	slices.Sort(set)
	return set, nil
}

// ExpandService expands the calendar with the given id in g, using the
// calendar dates nested under it.
func ExpandService(g *graph.Graph, serviceID identity.ID) (DateSet, error) {
	e, ok := g.Lookup(graph.KindCalendar, serviceID)
	if !ok {
		return nil, fmt.Errorf("calendar %s not found in %s", serviceID, g.Name())
	}
	children := g.ChildrenOf(serviceID, graph.KindCalendarDate)
	exceptions := make([]*graph.CalendarDate, 0, len(children))
	for _, child := range children {
		exceptions = append(exceptions, child.(*graph.CalendarDate))
	}
	return Expand(e.(*graph.Calendar), exceptions)
}

// Overlaps reports whether the two sets share at least one date.
func Overlaps(a, b DateSet) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Equal reports whether both sets hold the same dates.
func (s DateSet) Equal(other DateSet) bool {
	return slices.Equal(s, other)
}

// Contains reports whether d is a service date.
func (s DateSet) Contains(d Date) bool {
	_, found := slices.BinarySearch(s, d)
	return found
}

// weekdayIndex maps a weekday onto the Monday-first index of graph.Calendar.Days.
func weekdayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}
