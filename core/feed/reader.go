package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"feed-merger/core/graph"
	"feed-merger/core/identity"

	"go.uber.org/zap"
)

// defaultAgency is the local id given to an agency row without agency_id.
const defaultAgency = "default"

// Options controls how a feed is read.
type Options struct {
	// Name names the graph. Defaults to the scope.
	Name string
	// Scope scopes bare identifiers. Ignored with ScopedIDs.
	Scope string
	// ScopedIDs reads identifiers as full scope_local tokens.
	ScopedIDs bool
	// OnUnordered is called for each kind whose positional rows were not
	// presented in sequence order, with the number of offending rows.
	OnUnordered func(kind graph.Kind, rows int)
	Logger      *zap.Logger
}

// TableError locates a row that could not be read.
type TableError struct {
	File string
	Line int
	Err  error
}

func (e *TableError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

type row struct {
	line   int
	index  map[string]int
	record []string
}

// get returns the trimmed value of a column, or "" when the column is absent.
func (r row) get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

// readTable calls fn for every row of file. A missing file is an empty table.
func readTable(fsys fs.FS, file string, fn func(row) error) error {
	f, err := fsys.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &TableError{File: file, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return &TableError{File: file, Line: 1, Err: err}
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[strings.TrimSpace(name)] = i
	}

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return &TableError{File: file, Line: line, Err: err}
		}
		if blank(record) {
			continue
		}
		if err := fn(row{line: line, index: index, record: record}); err != nil {
			return &TableError{File: file, Line: line, Err: err}
		}
	}
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Load reads the tables of fsys into a new graph.
func Load(fsys fs.FS, opts Options) (*graph.Graph, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	scope := opts.Scope
	if scope == "" && !opts.ScopedIDs {
		var err error
		if scope, err = detectScope(fsys); err != nil {
			return nil, err
		}
		if scope == "" {
			scope = opts.Name
		}
	}
	scope = sanitizeScope(scope)
	if scope == "" && !opts.ScopedIDs {
		return nil, errors.New("load feed: no scope: set a scope or a feed name")
	}

	name := opts.Name
	if name == "" {
		name = scope
	}

	l := &loader{
		fsys:   fsys,
		scoped: opts.ScopedIDs,
		scope:  scope,
		g:      graph.New(name),
		log:    log.With(zap.String("feed", name)),
		report: opts.OnUnordered,
	}
	if err := l.load(); err != nil {
		return nil, fmt.Errorf("load feed %s: %w", name, err)
	}

	counts := l.g.Counts()
	l.log.Info("Feed loaded",
		zap.String("scope", scope),
		zap.Int("stops", counts[graph.KindStop]),
		zap.Int("routes", counts[graph.KindRoute]),
		zap.Int("trips", counts[graph.KindTrip]),
		zap.Int("stop_times", counts[graph.KindStopTime]))
	return l.g, nil
}

// detectScope returns the first agency_id of agency.txt.
func detectScope(fsys fs.FS) (string, error) {
	var scope string
	errStop := errors.New("stop")
	err := readTable(fsys, graph.SchemaOf(graph.KindAgency).File, func(r row) error {
		scope = r.get("agency_id")
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return "", err
	}
	return scope, nil
}

// sanitizeScope makes a scope usable in tokens.
func sanitizeScope(scope string) string {
	return strings.ReplaceAll(strings.TrimSpace(scope), identity.Separator, "-")
}

type loader struct {
	fsys   fs.FS
	scoped bool
	scope  string
	g      *graph.Graph
	log    *zap.Logger

	// positional rows in file order, for the ordering report
	presented map[graph.Kind][]graph.Positional
	report    func(graph.Kind, int)
}

func (l *loader) id(value string) (identity.ID, error) {
	if value == "" {
		return identity.ID{}, nil
	}
	if l.scoped {
		return identity.Parse(value)
	}
	return identity.New(l.scope, value)
}

// requiredID is like id but rejects an empty value.
func (l *loader) requiredID(r row, column string) (identity.ID, error) {
	value := r.get(column)
	if value == "" {
		return identity.ID{}, fmt.Errorf("missing %s", column)
	}
	return l.id(value)
}

func (l *loader) insert(e graph.Entity) error {
	if err := l.g.Insert(e); err != nil {
		return err
	}
	if p, ok := e.(graph.Positional); ok {
		l.presented[e.Kind()] = append(l.presented[e.Kind()], p)
	}
	return nil
}

func (l *loader) load() error {
	l.presented = make(map[graph.Kind][]graph.Positional)

	tables := []struct {
		kind  graph.Kind
		parse func(row) error
	}{
		{graph.KindAgency, l.agency},
		{graph.KindStop, l.stop},
		{graph.KindRoute, l.route},
		{graph.KindShapePoint, l.shapePoint},
		{graph.KindCalendar, l.calendar},
		{graph.KindCalendarDate, l.calendarDate},
		{graph.KindTrip, l.trip},
		{graph.KindStopTime, l.stopTime},
		{graph.KindFareAttribute, l.fareAttribute},
		{graph.KindFareRule, l.fareRule()},
	}
	for _, t := range tables {
		if err := readTable(l.fsys, graph.SchemaOf(t.kind).File, t.parse); err != nil {
			return err
		}
	}

	for _, kind := range graph.MergeOrder {
		n := graph.Unordered(kind, l.presented[kind])
		if n == 0 {
			continue
		}
		l.log.Info("Rows out of order, reordered by sequence",
			zap.Stringer("kind", kind),
			zap.Int("rows", n))
		if l.report != nil {
			l.report(kind, n)
		}
	}
	return nil
}
