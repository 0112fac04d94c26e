package feed

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
	"testing/fstest"

	"feed-merger/core/graph"
	"feed-merger/core/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var metroTables = map[string]string{
	"agency.txt": "\ufeffagency_id,agency_name,agency_url,agency_timezone\n" +
		"metro,Metro,https://metro.example,Europe/Paris\n",
	"stops.txt": "stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station\n" +
		"CEN,Central,48.8566,2.3522,1,\n" +
		"CEN1,Central platform 1,48.8566,2.3522,0,CEN\n" +
		"MKT,Market,48.86,2.36,,\n",
	"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
		"R1,metro,1,Line 1,1\n",
	"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
		"SH1,48.86,2.36,2\n" +
		"SH1,48.8566,2.3522,1\n",
	"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
		"WK,1,1,1,1,1,0,0,20240101,20240131\n",
	"calendar_dates.txt": "service_id,date,exception_type\n" +
		"WK,20240101,2\n" +
		"XMAS,20241225,1\n",
	"trips.txt": "route_id,service_id,trip_id,trip_headsign,shape_id\n" +
		"R1,WK,T1,Market,SH1\n" +
		"R1,XMAS,T2,Market,\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"T1,08:00:00,08:00:00,CEN1,1\n" +
		"T1,08:05:00,08:05:00,MKT,2\n" +
		"T2,09:05:00,09:05:00,MKT,2\n" +
		"T2,09:00:00,09:00:00,CEN1,1\n",
	"fare_attributes.txt": "fare_id,price,currency_type,payment_method,transfers\n" +
		"F1,1.90,EUR,0,\n",
	"fare_rules.txt": "fare_id,route_id,origin_id\n" +
		"F1,R1,\n" +
		"F1,,Z1\n",
}

func mapFS(tables map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, content := range tables {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func withTable(name, content string) map[string]string {
	tables := make(map[string]string, len(metroTables))
	for k, v := range metroTables {
		tables[k] = v
	}
	tables[name] = content
	return tables
}

func id(scope, local string) identity.ID {
	return identity.MustNew(scope, local)
}

func TestLoad(t *testing.T) {
	g, err := Load(mapFS(metroTables), Options{Name: "metro-feed"})
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	assert.Equal(t, "metro-feed", g.Name())
	assert.Equal(t, 3, g.Len(graph.KindStop))
	assert.True(t, g.Has(graph.KindStop, id("metro", "CEN")), "scope comes from the first agency")

	platform, ok := g.Lookup(graph.KindStop, id("metro", "CEN1"))
	require.True(t, ok)
	assert.Equal(t, id("metro", "CEN"), platform.(*graph.Stop).ParentStation)

	t.Run("shapes are synthesized", func(t *testing.T) {
		assert.True(t, g.Has(graph.KindShape, id("metro", "SH1")))
		points := g.ChildrenOf(id("metro", "SH1"), graph.KindShapePoint)
		require.Len(t, points, 2)
		assert.Equal(t, 1, points[0].Sequence())
	})

	t.Run("services without pattern", func(t *testing.T) {
		e, ok := g.Lookup(graph.KindCalendar, id("metro", "XMAS"))
		require.True(t, ok)
		assert.False(t, e.(*graph.Calendar).HasPattern)

		e, ok = g.Lookup(graph.KindCalendar, id("metro", "WK"))
		require.True(t, ok)
		wk := e.(*graph.Calendar)
		assert.True(t, wk.HasPattern)
		assert.Equal(t, [7]bool{true, true, true, true, true, false, false}, wk.Days)
		assert.Len(t, g.ChildrenOf(id("metro", "WK"), graph.KindCalendarDate), 1)
	})

	t.Run("stop times are ordered", func(t *testing.T) {
		children := g.ChildrenOf(id("metro", "T2"), graph.KindStopTime)
		require.Len(t, children, 2)
		assert.Equal(t, "09:00:00", children[0].(*graph.StopTime).ArrivalTime)
	})

	t.Run("fare rules are numbered", func(t *testing.T) {
		rules := g.ChildrenOf(id("metro", "F1"), graph.KindFareRule)
		require.Len(t, rules, 2)
		assert.Equal(t, id("metro", "R1"), rules[0].(*graph.FareRule).RouteID)
		assert.Equal(t, "Z1", rules[1].(*graph.FareRule).OriginID)
		assert.True(t, rules[1].(*graph.FareRule).RouteID.IsZero())
	})
}

// withoutAgencyIDs is a single-agency feed that leaves agency_id out.
func withoutAgencyIDs() map[string]string {
	tables := withTable("agency.txt", "agency_name,agency_timezone\nMetro,Europe/Paris\n")
	tables["routes.txt"] = "route_id,route_short_name,route_type\nR1,1,1\n"
	tables["fare_attributes.txt"] = "fare_id,price,currency_type,payment_method,transfers\nF1,1.90,EUR,0,\n"
	return tables
}

func TestLoadScope(t *testing.T) {
	tests := []struct {
		name   string
		tables map[string]string
		opts   Options
		want   identity.ID
	}{
		{"explicit", metroTables, Options{Scope: "city_bus"}, id("city-bus", "CEN")},
		{"agency", metroTables, Options{}, id("metro", "CEN")},
		{"feed name", withoutAgencyIDs(), Options{Name: "paris"}, id("paris", "CEN")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Load(mapFS(tt.tables), tt.opts)
			require.NoError(t, err)
			assert.True(t, g.Has(graph.KindStop, tt.want))
		})
	}
}

func TestLoadDefaultAgency(t *testing.T) {
	g, err := Load(mapFS(withoutAgencyIDs()), Options{Name: "paris"})
	require.NoError(t, err)
	assert.True(t, g.Has(graph.KindAgency, id("paris", defaultAgency)))
}

func TestLoadErrors(t *testing.T) {
	t.Run("invalid coordinate", func(t *testing.T) {
		tables := withTable("stops.txt", "stop_id,stop_name,stop_lat,stop_lon\nS1,One,north,2\n")
		_, err := Load(mapFS(tables), Options{Scope: "m"})
		require.Error(t, err)

		var tableErr *TableError
		require.True(t, errors.As(err, &tableErr))
		assert.Equal(t, "stops.txt", tableErr.File)
		assert.Equal(t, 2, tableErr.Line)
	})

	t.Run("duplicate key", func(t *testing.T) {
		tables := withTable("stops.txt", "stop_id,stop_name,stop_lat,stop_lon\nS1,One,1,2\nS1,Two,1,2\n")
		_, err := Load(mapFS(tables), Options{Scope: "m"})
		assert.True(t, errors.Is(err, graph.ErrDuplicateIdentifier))
	})

	t.Run("missing key", func(t *testing.T) {
		tables := withTable("routes.txt", "route_id,route_type\n,3\n")
		_, err := Load(mapFS(tables), Options{Scope: "m"})
		assert.ErrorContains(t, err, "missing route_id")
	})

	t.Run("malformed scoped token", func(t *testing.T) {
		_, err := Load(mapFS(metroTables), Options{ScopedIDs: true, Name: "metro"})
		assert.True(t, errors.Is(err, identity.ErrMalformedIdentifier))
	})

	t.Run("unknown exception type", func(t *testing.T) {
		tables := withTable("calendar_dates.txt", "service_id,date,exception_type\nWK,20240102,3\n")
		_, err := Load(mapFS(tables), Options{Scope: "m"})
		assert.ErrorContains(t, err, "exception_type")
	})
}

func TestWriteRoundTrip(t *testing.T) {
	g, err := Load(mapFS(metroTables), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteZip(&buf, g))

	back, err := LoadArchive(buf.Bytes(), Options{ScopedIDs: true, Name: "metro"})
	require.NoError(t, err)

	for _, kind := range graph.MergeOrder {
		assert.Equal(t, values(g, kind), values(back, kind), kind.String())
	}
}

func values(g *graph.Graph, kind graph.Kind) [][]string {
	var rows [][]string
	for _, e := range g.All(kind) {
		rows = append(rows, append([]string{identity.Format(e.ID())}, e.Values()...))
	}
	return rows
}

func TestWritePath(t *testing.T) {
	g, err := Load(mapFS(metroTables), Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WritePath(dir+"/out", g))
	require.NoError(t, WritePath(dir+"/out.zip", g))

	fromDir, err := LoadPath(dir+"/out", Options{ScopedIDs: true})
	require.NoError(t, err)
	assert.Equal(t, "out", fromDir.Name())

	fromZip, err := LoadPath(dir+"/out.zip", Options{ScopedIDs: true})
	require.NoError(t, err)
	assert.Equal(t, values(fromDir, graph.KindStopTime), values(fromZip, graph.KindStopTime))
	assert.Equal(t, 3, fromZip.Len(graph.KindStop))
}

func TestLoadArchiveWithFolder(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range metroTables {
		w, err := zw.Create("gtfs/" + name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	g, err := LoadArchive(buf.Bytes(), Options{Name: "metro"})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len(graph.KindStop))
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "metro", NameOf("feeds/metro.zip"))
	assert.Equal(t, "bus", NameOf("/srv/feeds/bus"))
}

func TestLoadReportsUnordered(t *testing.T) {
	got := make(map[graph.Kind]int)
	_, err := Load(mapFS(metroTables), Options{OnUnordered: func(kind graph.Kind, rows int) {
		got[kind] = rows
	}})
	require.NoError(t, err)

	assert.Equal(t, map[graph.Kind]int{
		graph.KindShapePoint: 1,
		graph.KindStopTime:   1,
	}, got)
}
