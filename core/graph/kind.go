package graph

import (
	"fmt"
	"strings"
)

// Kind tags an entity variant.
type Kind int

const (
	KindAgency Kind = iota
	KindStop
	KindRoute
	KindShape
	KindShapePoint
	KindCalendar
	KindCalendarDate
	KindTrip
	KindStopTime
	KindFareAttribute
	KindFareRule

	kindCount
)

// MergeOrder lists every kind so that each kind comes after all kinds it references.
var MergeOrder = []Kind{
	KindAgency,
	KindStop,
	KindRoute,
	KindShape,
	KindShapePoint,
	KindCalendar,
	KindCalendarDate,
	KindTrip,
	KindStopTime,
	KindFareAttribute,
	KindFareRule,
}

var kindNames = [kindCount]string{
	KindAgency:        "agency",
	KindStop:          "stop",
	KindRoute:         "route",
	KindShape:         "shape",
	KindShapePoint:    "shape_point",
	KindCalendar:      "calendar",
	KindCalendarDate:  "calendar_date",
	KindTrip:          "trip",
	KindStopTime:      "stop_time",
	KindFareAttribute: "fare_attribute",
	KindFareRule:      "fare_rule",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts the singular or plural kind name, e.g. "trip" or "trips".
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if name == n || name == n+"s" || (strings.HasSuffix(n, "y") && name == strings.TrimSuffix(n, "y")+"ies") {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

// Role describes what a column holds.
type Role int

const (
	// RoleData is plain content.
	RoleData Role = iota
	// RoleID is the entity's own key.
	RoleID
	// RoleRef is a foreign key to another entity.
	RoleRef
	// RoleParent is the foreign key to the parent of a positional entity.
	RoleParent
)

// Column is one field of a kind's schema.
type Column struct {
	Name     string
	Role     Role
	Target   Kind
	Optional bool
}

// Schema is the static field list of a kind.
type Schema struct {
	Kind Kind
	// File is the feed table name. Empty for kinds synthesized by the loader.
	File    string
	Columns []Column
	// Child is the positional kind nested under this one, if HasChild.
	Child    Kind
	HasChild bool
}

// Parent returns the parent column of a positional kind.
func (s *Schema) Parent() (Column, bool) {
	for _, c := range s.Columns {
		if c.Role == RoleParent {
			return c, true
		}
	}
	return Column{}, false
}

// Positional reports whether entities of this kind are ordered within a parent.
func (s *Schema) Positional() bool {
	_, ok := s.Parent()
	return ok
}

// Names returns the column names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// References returns the ref and parent columns.
func (s *Schema) References() []Column {
	var refs []Column
	for _, c := range s.Columns {
		if c.Role == RoleRef || c.Role == RoleParent {
			refs = append(refs, c)
		}
	}
	return refs
}

func data(name string) Column { return Column{Name: name} }

var schemas = [kindCount]*Schema{
	KindAgency: {
		Kind: KindAgency,
		File: "agency.txt",
		Columns: []Column{
			{Name: "agency_id", Role: RoleID},
			data("agency_name"), data("agency_url"), data("agency_timezone"), data("agency_lang"), data("agency_phone"),
		},
	},
	KindStop: {
		Kind: KindStop,
		File: "stops.txt",
		Columns: []Column{
			{Name: "stop_id", Role: RoleID},
			data("stop_code"), data("stop_name"), data("stop_lat"), data("stop_lon"), data("zone_id"), data("location_type"),
			{Name: "parent_station", Role: RoleRef, Target: KindStop, Optional: true},
		},
	},
	KindRoute: {
		Kind: KindRoute,
		File: "routes.txt",
		Columns: []Column{
			{Name: "route_id", Role: RoleID},
			{Name: "agency_id", Role: RoleRef, Target: KindAgency, Optional: true},
			data("route_short_name"), data("route_long_name"), data("route_type"), data("route_color"), data("route_text_color"),
		},
	},
	KindShape: {
		Kind:     KindShape,
		Columns:  []Column{{Name: "shape_id", Role: RoleID}},
		Child:    KindShapePoint,
		HasChild: true,
	},
	KindShapePoint: {
		Kind: KindShapePoint,
		File: "shapes.txt",
		Columns: []Column{
			{Name: "shape_id", Role: RoleParent, Target: KindShape},
			data("shape_pt_lat"), data("shape_pt_lon"), data("shape_pt_sequence"), data("shape_dist_traveled"),
		},
	},
	KindCalendar: {
		Kind: KindCalendar,
		File: "calendar.txt",
		Columns: []Column{
			{Name: "service_id", Role: RoleID},
			data("monday"), data("tuesday"), data("wednesday"), data("thursday"), data("friday"), data("saturday"), data("sunday"),
			data("start_date"), data("end_date"),
		},
		Child:    KindCalendarDate,
		HasChild: true,
	},
	KindCalendarDate: {
		Kind: KindCalendarDate,
		File: "calendar_dates.txt",
		Columns: []Column{
			{Name: "service_id", Role: RoleParent, Target: KindCalendar},
			data("date"), data("exception_type"),
		},
	},
	KindTrip: {
		Kind: KindTrip,
		File: "trips.txt",
		Columns: []Column{
			{Name: "route_id", Role: RoleRef, Target: KindRoute},
			{Name: "service_id", Role: RoleRef, Target: KindCalendar, Optional: true},
			{Name: "trip_id", Role: RoleID},
			data("trip_headsign"), data("direction_id"), data("block_id"),
			{Name: "shape_id", Role: RoleRef, Target: KindShape, Optional: true},
		},
		Child:    KindStopTime,
		HasChild: true,
	},
	KindStopTime: {
		Kind: KindStopTime,
		File: "stop_times.txt",
		Columns: []Column{
			{Name: "trip_id", Role: RoleParent, Target: KindTrip},
			data("arrival_time"), data("departure_time"),
			{Name: "stop_id", Role: RoleRef, Target: KindStop},
			data("stop_sequence"), data("stop_headsign"), data("pickup_type"), data("drop_off_type"), data("shape_dist_traveled"),
		},
	},
	KindFareAttribute: {
		Kind: KindFareAttribute,
		File: "fare_attributes.txt",
		Columns: []Column{
			{Name: "fare_id", Role: RoleID},
			data("price"), data("currency_type"), data("payment_method"), data("transfers"),
			{Name: "agency_id", Role: RoleRef, Target: KindAgency, Optional: true},
			data("transfer_duration"),
		},
		Child:    KindFareRule,
		HasChild: true,
	},
	KindFareRule: {
		Kind: KindFareRule,
		File: "fare_rules.txt",
		Columns: []Column{
			{Name: "fare_id", Role: RoleParent, Target: KindFareAttribute},
			{Name: "route_id", Role: RoleRef, Target: KindRoute, Optional: true},
			data("origin_id"), data("destination_id"), data("contains_id"),
		},
	},
}

// SchemaOf returns the static schema of a kind.
func SchemaOf(k Kind) *Schema {
	return schemas[k]
}
