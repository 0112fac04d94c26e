package graph

import (
	"strconv"

	"feed-merger/core/identity"
)

// Entity is implemented by every entity variant.
type Entity interface {
	Kind() Kind
	// ID is the entity's own key.
	ID() identity.ID
	// Ref returns the value of a ref or parent column, or the zero ID.
	Ref(column string) identity.ID
	// Values returns the column values in schema order.
	Values() []string
	// Rebind returns a copy under a new key with the given references replaced.
	Rebind(id identity.ID, refs map[string]identity.ID) Entity
}

// Positional is an entity ordered within a parent.
type Positional interface {
	Entity
	Parent() identity.ID
	Sequence() int
}

// ChildKey derives the key of a positional entity from its parent and sequence.
// A zero parent yields the zero ID, which Insert rejects.
func ChildKey(parent identity.ID, seq int) identity.ID {
	key, err := identity.WithLocal(parent, parent.Local()+"#"+strconv.Itoa(seq))
	if err != nil {
		return identity.ID{}
	}
	return key
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func ref(refs map[string]identity.ID, column string, current identity.ID) identity.ID {
	if id, ok := refs[column]; ok {
		return id
	}
	return current
}

// Agency is an operator of transit service.
type Agency struct {
	AgencyID identity.ID
	Name     string
	URL      string
	Timezone string
	Lang     string
	Phone    string
}

func (a *Agency) Kind() Kind { return KindAgency }
func (a *Agency) ID() identity.ID { return a.AgencyID }
func (a *Agency) Ref(string) identity.ID { return identity.ID{} }
func (a *Agency) Values() []string {
	return []string{a.AgencyID.String(), a.Name, a.URL, a.Timezone, a.Lang, a.Phone}
}
func (a *Agency) Rebind(id identity.ID, _ map[string]identity.ID) Entity {
	c := *a
	c.AgencyID = id
	return &c
}

// Stop is a boarding location or station.
type Stop struct {
	StopID        identity.ID
	Code          string
	Name          string
	Lat           float64
	Lon           float64
	ZoneID        string
	LocationType  int
	ParentStation identity.ID
}

func (s *Stop) Kind() Kind { return KindStop }
func (s *Stop) ID() identity.ID { return s.StopID }
func (s *Stop) Ref(column string) identity.ID {
	if column == "parent_station" {
		return s.ParentStation
	}
	return identity.ID{}
}
func (s *Stop) Values() []string {
	return []string{
		s.StopID.String(), s.Code, s.Name, formatFloat(s.Lat), formatFloat(s.Lon),
		s.ZoneID, strconv.Itoa(s.LocationType), s.ParentStation.String(),
	}
}
func (s *Stop) Rebind(id identity.ID, refs map[string]identity.ID) Entity {
	c := *s
	c.StopID = id
	c.ParentStation = ref(refs, "parent_station", s.ParentStation)
	return &c
}

// Route is a group of trips presented to riders as one service.
type Route struct {
	RouteID   identity.ID
	AgencyID  identity.ID
	ShortName string
	LongName  string
	Type      int
	Color     string
	TextColor string
}

func (r *Route) Kind() Kind { return KindRoute }
func (r *Route) ID() identity.ID { return r.RouteID }
func (r *Route) Ref(column string) identity.ID {
	if column == "agency_id" {
		return r.AgencyID
	}
	return identity.ID{}
}
func (r *Route) Values() []string {
	return []string{
		r.RouteID.String(), r.AgencyID.String(), r.ShortName, r.LongName,
		strconv.Itoa(r.Type), r.Color, r.TextColor,
	}
}
func (r *Route) Rebind(id identity.ID, refs map[string]identity.ID) Entity {
	c := *r
	c.RouteID = id
	c.AgencyID = ref(refs, "agency_id", r.AgencyID)
	return &c
}

// Shape is the path a vehicle travels; its geometry is the ordered ShapePoints.
type Shape struct {
	ShapeID identity.ID
}

func (s *Shape) Kind() Kind { return KindShape }
func (s *Shape) ID() identity.ID { return s.ShapeID }
func (s *Shape) Ref(string) identity.ID { return identity.ID{} }
func (s *Shape) Values() []string { return []string{s.ShapeID.String()} }
func (s *Shape) Rebind(id identity.ID, _ map[string]identity.ID) Entity {
	return &Shape{ShapeID: id}
}

// ShapePoint is one vertex of a shape.
type ShapePoint struct {
	Key          identity.ID
	ShapeID      identity.ID
	Lat          float64
	Lon          float64
	Seq          int
	DistTraveled string
}

func (p *ShapePoint) Kind() Kind { return KindShapePoint }
func (p *ShapePoint) ID() identity.ID { return p.Key }
func (p *ShapePoint) Parent() identity.ID { return p.ShapeID }
func (p *ShapePoint) Sequence() int { return p.Seq }
func (p *ShapePoint) Ref(column string) identity.ID {
	if column == "shape_id" {
		return p.ShapeID
	}
	return identity.ID{}
}
func (p *ShapePoint) Values() []string {
	return []string{p.ShapeID.String(), formatFloat(p.Lat), formatFloat(p.Lon), strconv.Itoa(p.Seq), p.DistTraveled}
}
func (p *ShapePoint) Rebind(id identity.ID, refs map[string]identity.ID) Entity {
	c := *p
	c.Key = id
	c.ShapeID = ref(refs, "shape_id", p.ShapeID)
	return &c
}

// Calendar is a service: a weekday pattern over a date range, plus the
// CalendarDate exceptions nested under it. A service defined only by
// exceptions has HasPattern false.
type Calendar struct {
	ServiceID  identity.ID
	Days       [7]bool // Monday first
	StartDate  string
	EndDate    string
	HasPattern bool
}

func (c *Calendar) Kind() Kind { return KindCalendar }
func (c *Calendar) ID() identity.ID { return c.ServiceID }
func (c *Calendar) Ref(string) identity.ID { return identity.ID{} }
func (c *Calendar) Values() []string {
	v := make([]string, 0, 10)
	v = append(v, c.ServiceID.String())
	for _, d := range c.Days {
		v = append(v, formatBool(d))
	}
	return append(v, c.StartDate, c.EndDate)
}
func (c *Calendar) Rebind(id identity.ID, _ map[string]identity.ID) Entity {
	cp := *c
	cp.ServiceID = id
	return &cp
}

// Exception types of a CalendarDate.
const (
	ServiceAdded   = 1
	ServiceRemoved = 2
)

// CalendarDate adds or removes service on one date. Its sequence is the date
// as a yyyymmdd integer.
type CalendarDate struct {
	Key           identity.ID
	ServiceID     identity.ID
	Date          string
	ExceptionType int
}

func (d *CalendarDate) Kind() Kind { return KindCalendarDate }
func (d *CalendarDate) ID() identity.ID { return d.Key }
func (d *CalendarDate) Parent() identity.ID { return d.ServiceID }
func (d *CalendarDate) Sequence() int {
	n, _ := strconv.Atoi(d.Date)
	return n
}
func (d *CalendarDate) Ref(column string) identity.ID {
	if column == "service_id" {
		return d.ServiceID
	}
	return identity.ID{}
}
func (d *CalendarDate) Values() []string {
	return []string{d.ServiceID.String(), d.Date, strconv.Itoa(d.ExceptionType)}
}
func (d *CalendarDate) Rebind(id identity.ID, refs map[string]identity.ID) Entity {
	c := *d
	c.Key = id
	c.ServiceID = ref(refs, "service_id", d.ServiceID)
	return &c
}

// Trip is one journey of a vehicle along a route.
type Trip struct {
	TripID      identity.ID
	RouteID     identity.ID
	ServiceID   identity.ID
	ShapeID     identity.ID
	Headsign    string
	DirectionID string
	BlockID     string
}

func (t *Trip) Kind() Kind { return KindTrip }
func (t *Trip) ID() identity.ID { return t.TripID }
func (t *Trip) Ref(column string) identity.ID {
	switch column {
	case "route_id":
		return t.RouteID
	case "service_id":
		return t.ServiceID
	case "shape_id":
		return t.ShapeID
	}
	return identity.ID{}
}
func (t *Trip) Values() []string {
	return []string{
		t.RouteID.String(), t.ServiceID.String(), t.TripID.String(),
		t.Headsign, t.DirectionID, t.BlockID, t.ShapeID.String(),
	}
}
func (t *Trip) Rebind(id identity.ID, refs map[string]identity.ID) Entity {
	c := *t
	c.TripID = id
	c.RouteID = ref(refs, "route_id", t.RouteID)
	c.ServiceID = ref(refs, "service_id", t.ServiceID)
	c.ShapeID = ref(refs, "shape_id", t.ShapeID)
	return &c
}

// StopTime is a scheduled visit of a trip at a stop.
type StopTime struct {
	Key           identity.ID
	TripID        identity.ID
	StopID        identity.ID
	StopSequence  int
	ArrivalTime   string
	DepartureTime string
	Headsign      string
	PickupType    string
	DropOffType   string
	DistTraveled  string
}

func (st *StopTime) Kind() Kind { return KindStopTime }
func (st *StopTime) ID() identity.ID { return st.Key }
func (st *StopTime) Parent() identity.ID { return st.TripID }
func (st *StopTime) Sequence() int { return st.StopSequence }
func (st *StopTime) Ref(column string) identity.ID {
	switch column {
	case "trip_id":
		return st.TripID
	case "stop_id":
		return st.StopID
	}
	return identity.ID{}
}
func (st *StopTime) Values() []string {
	return []string{
		st.TripID.String(), st.ArrivalTime, st.DepartureTime, st.StopID.String(),
		strconv.Itoa(st.StopSequence), st.Headsign, st.PickupType, st.DropOffType, st.DistTraveled,
	}
}
func (st *StopTime) Rebind(id identity.ID, refs map[string]identity.ID) Entity {
	c := *st
	c.Key = id
	c.TripID = ref(refs, "trip_id", st.TripID)
	c.StopID = ref(refs, "stop_id", st.StopID)
	return &c
}

// FareAttribute is a fare class.
type FareAttribute struct {
	FareID           identity.ID
	AgencyID         identity.ID
	Price            string
	CurrencyType     string
	PaymentMethod    string
	Transfers        string
	TransferDuration string
}

func (f *FareAttribute) Kind() Kind { return KindFareAttribute }
func (f *FareAttribute) ID() identity.ID { return f.FareID }
func (f *FareAttribute) Ref(column string) identity.ID {
	if column == "agency_id" {
		return f.AgencyID
	}
	return identity.ID{}
}
func (f *FareAttribute) Values() []string {
	return []string{
		f.FareID.String(), f.Price, f.CurrencyType, f.PaymentMethod, f.Transfers,
		f.AgencyID.String(), f.TransferDuration,
	}
}
func (f *FareAttribute) Rebind(id identity.ID, refs map[string]identity.ID) Entity {
	c := *f
	c.FareID = id
	c.AgencyID = ref(refs, "agency_id", f.AgencyID)
	return &c
}

// FareRule applies a fare class to a route or zone pair. Rules have no key of
// their own; the loader numbers them in file order within their fare.
type FareRule struct {
	Key           identity.ID
	FareID        identity.ID
	RouteID       identity.ID
	OriginID      string
	DestinationID string
	ContainsID    string
	Seq           int
}

func (r *FareRule) Kind() Kind { return KindFareRule }
func (r *FareRule) ID() identity.ID { return r.Key }
func (r *FareRule) Parent() identity.ID { return r.FareID }
func (r *FareRule) Sequence() int { return r.Seq }
func (r *FareRule) Ref(column string) identity.ID {
	switch column {
	case "fare_id":
		return r.FareID
	case "route_id":
		return r.RouteID
	}
	return identity.ID{}
}
func (r *FareRule) Values() []string {
	return []string{r.FareID.String(), r.RouteID.String(), r.OriginID, r.DestinationID, r.ContainsID}
}
func (r *FareRule) Rebind(id identity.ID, refs map[string]identity.ID) Entity {
	c := *r
	c.Key = id
	c.FareID = ref(refs, "fare_id", r.FareID)
	c.RouteID = ref(refs, "route_id", r.RouteID)
	return &c
}
