package feed

import (
	"fmt"
	"strconv"

	"feed-merger/core/calendar"
	"feed-merger/core/graph"
	"feed-merger/core/identity"
)

func parseFloat(r row, column string) (float64, error) {
	v := r.get(column)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", column, v)
	}
	return f, nil
}

func parseInt(r row, column string) (int, error) {
	v := r.get(column)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", column, v)
	}
	return n, nil
}

// parseOptionalInt treats an empty value as zero.
func parseOptionalInt(r row, column string) (int, error) {
	if r.get(column) == "" {
		return 0, nil
	}
	return parseInt(r, column)
}

// agency gives a row without agency_id the id "default" in the feed scope.
func (l *loader) agency(r row) error {
	id, err := l.id(r.get("agency_id"))
	if err != nil {
		return err
	}
	if id.IsZero() {
		scope := l.scope
		if scope == "" {
			scope = sanitizeScope(l.g.Name())
		}
		if id, err = identity.New(scope, defaultAgency); err != nil {
			return err
		}
	}
	return l.insert(&graph.Agency{
		AgencyID: id,
		Name:     r.get("agency_name"),
		URL:      r.get("agency_url"),
		Timezone: r.get("agency_timezone"),
		Lang:     r.get("agency_lang"),
		Phone:    r.get("agency_phone"),
	})
}

func (l *loader) stop(r row) error {
	id, err := l.requiredID(r, "stop_id")
	if err != nil {
		return err
	}
	parent, err := l.id(r.get("parent_station"))
	if err != nil {
		return err
	}
	lat, err := parseFloat(r, "stop_lat")
	if err != nil {
		return err
	}
	lon, err := parseFloat(r, "stop_lon")
	if err != nil {
		return err
	}
	locationType, err := parseOptionalInt(r, "location_type")
	if err != nil {
		return err
	}
	return l.insert(&graph.Stop{
		StopID:        id,
		Code:          r.get("stop_code"),
		Name:          r.get("stop_name"),
		Lat:           lat,
		Lon:           lon,
		ZoneID:        r.get("zone_id"),
		LocationType:  locationType,
		ParentStation: parent,
	})
}

func (l *loader) route(r row) error {
	id, err := l.requiredID(r, "route_id")
	if err != nil {
		return err
	}
	agency, err := l.id(r.get("agency_id"))
	if err != nil {
		return err
	}
	routeType, err := parseInt(r, "route_type")
	if err != nil {
		return err
	}
	return l.insert(&graph.Route{
		RouteID:   id,
		AgencyID:  agency,
		ShortName: r.get("route_short_name"),
		LongName:  r.get("route_long_name"),
		Type:      routeType,
		Color:     r.get("route_color"),
		TextColor: r.get("route_text_color"),
	})
}

func (l *loader) shapePoint(r row) error {
	shape, err := l.requiredID(r, "shape_id")
	if err != nil {
		return err
	}
	if !l.g.Has(graph.KindShape, shape) {
		if err := l.g.Insert(&graph.Shape{ShapeID: shape}); err != nil {
			return err
		}
	}
	lat, err := parseFloat(r, "shape_pt_lat")
	if err != nil {
		return err
	}
	lon, err := parseFloat(r, "shape_pt_lon")
	if err != nil {
		return err
	}
	seq, err := parseInt(r, "shape_pt_sequence")
	if err != nil {
		return err
	}
	return l.insert(&graph.ShapePoint{
		Key:          graph.ChildKey(shape, seq),
		ShapeID:      shape,
		Lat:          lat,
		Lon:          lon,
		Seq:          seq,
		DistTraveled: r.get("shape_dist_traveled"),
	})
}

var weekdayColumns = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func (l *loader) calendar(r row) error {
	id, err := l.requiredID(r, "service_id")
	if err != nil {
		return err
	}
	c := &graph.Calendar{
		ServiceID:  id,
		StartDate:  r.get("start_date"),
		EndDate:    r.get("end_date"),
		HasPattern: true,
	}
	for i, column := range weekdayColumns {
		switch r.get(column) {
		case "1":
			c.Days[i] = true
		case "0", "":
		default:
			return fmt.Errorf("invalid %s %q", column, r.get(column))
		}
	}
	if _, err := calendar.ParseDate(c.StartDate); err != nil {
		return err
	}
	if _, err := calendar.ParseDate(c.EndDate); err != nil {
		return err
	}
	return l.insert(c)
}

func (l *loader) calendarDate(r row) error {
	service, err := l.requiredID(r, "service_id")
	if err != nil {
		return err
	}
	date := r.get("date")
	if _, err := calendar.ParseDate(date); err != nil {
		return err
	}
	exception, err := parseInt(r, "exception_type")
	if err != nil {
		return err
	}
	if exception != graph.ServiceAdded && exception != graph.ServiceRemoved {
		return fmt.Errorf("invalid exception_type %d", exception)
	}

	if !l.g.Has(graph.KindCalendar, service) {
		if err := l.g.Insert(&graph.Calendar{ServiceID: service}); err != nil {
			return err
		}
	}
	d := &graph.CalendarDate{ServiceID: service, Date: date, ExceptionType: exception}
	d.Key = graph.ChildKey(service, d.Sequence())
	return l.insert(d)
}

func (l *loader) trip(r row) error {
	id, err := l.requiredID(r, "trip_id")
	if err != nil {
		return err
	}
	route, err := l.requiredID(r, "route_id")
	if err != nil {
		return err
	}
	service, err := l.id(r.get("service_id"))
	if err != nil {
		return err
	}
	shape, err := l.id(r.get("shape_id"))
	if err != nil {
		return err
	}
	return l.insert(&graph.Trip{
		TripID:      id,
		RouteID:     route,
		ServiceID:   service,
		ShapeID:     shape,
		Headsign:    r.get("trip_headsign"),
		DirectionID: r.get("direction_id"),
		BlockID:     r.get("block_id"),
	})
}

func (l *loader) stopTime(r row) error {
	trip, err := l.requiredID(r, "trip_id")
	if err != nil {
		return err
	}
	stop, err := l.requiredID(r, "stop_id")
	if err != nil {
		return err
	}
	seq, err := parseInt(r, "stop_sequence")
	if err != nil {
		return err
	}
	return l.insert(&graph.StopTime{
		Key:           graph.ChildKey(trip, seq),
		TripID:        trip,
		StopID:        stop,
		StopSequence:  seq,
		ArrivalTime:   r.get("arrival_time"),
		DepartureTime: r.get("departure_time"),
		Headsign:      r.get("stop_headsign"),
		PickupType:    r.get("pickup_type"),
		DropOffType:   r.get("drop_off_type"),
		DistTraveled:  r.get("shape_dist_traveled"),
	})
}

func (l *loader) fareAttribute(r row) error {
	id, err := l.requiredID(r, "fare_id")
	if err != nil {
		return err
	}
	agency, err := l.id(r.get("agency_id"))
	if err != nil {
		return err
	}
	return l.insert(&graph.FareAttribute{
		FareID:           id,
		AgencyID:         agency,
		Price:            r.get("price"),
		CurrencyType:     r.get("currency_type"),
		PaymentMethod:    r.get("payment_method"),
		Transfers:        r.get("transfers"),
		TransferDuration: r.get("transfer_duration"),
	})
}

// fareRule numbers rules in file order within their fare.
func (l *loader) fareRule() func(row) error {
	next := make(map[identity.ID]int)
	return func(r row) error {
		fare, err := l.requiredID(r, "fare_id")
		if err != nil {
			return err
		}
		route, err := l.id(r.get("route_id"))
		if err != nil {
			return err
		}
		next[fare]++
		seq := next[fare]
		return l.insert(&graph.FareRule{
			Key:           graph.ChildKey(fare, seq),
			FareID:        fare,
			RouteID:       route,
			OriginID:      r.get("origin_id"),
			DestinationID: r.get("destination_id"),
			ContainsID:    r.get("contains_id"),
			Seq:           seq,
		})
	}
}
