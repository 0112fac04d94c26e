package merge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feed-merger/core/cache"
	"feed-merger/core/graph"
	"feed-merger/core/identity"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine merges feed graphs into a new target graph.
type Engine struct {
	cfg        Config
	modes      map[graph.Kind]Mode
	strategies Registry
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Runs are silent without one.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStrategy replaces the strategy of one kind.
func WithStrategy(kind graph.Kind, s Strategy) Option {
	return func(e *Engine) {
		e.strategies[kind] = s
	}
}

// NewEngine creates an engine. Invalid overrides are reported here rather
// than at merge time.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.withDefaults()
	modes, err := cfg.Modes()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		modes:      modes,
		strategies: DefaultRegistry(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.strategies.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Config returns the effective settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run is the state of one merge. Strategies receive it to look at the target
// built so far.
type Run struct {
	id         string
	cfg        Config
	modes      map[graph.Kind]Mode
	strategies Registry
	target     *graph.Graph
	cache      *cache.Cache
	tables     *Tables
	stops      *stopIndex
	namer      *namer
	reused     map[reuseKey]struct{}
	report     *Report
	logger     *zap.Logger
}

// reuseKey names a target parent a source's entity was mapped onto.
type reuseKey struct {
	source graph.Handle
	kind   graph.Kind
	id     identity.ID
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// Config returns the run settings.
func (r *Run) Config() Config { return r.cfg }

// Target returns the graph under construction.
func (r *Run) Target() *graph.Graph { return r.target }

// Cache returns the signature cache of the run.
func (r *Run) Cache() *cache.Cache { return r.cache }

// Tables returns the remapping tables of the run.
func (r *Run) Tables() *Tables { return r.tables }

// TargetSignature returns the signature recorded when a target entity was
// inserted. A missing signature is an internal error.
func (r *Run) TargetSignature(kind graph.Kind, id identity.ID) (any, error) {
	key := cache.Key{Graph: r.target.Handle(), Kind: kind, ID: id}
	return cache.GetOrCompute(r.cache, key, func() (any, error) {
		return nil, fmt.Errorf("no signature recorded for target %s %s", kind, identity.Format(id))
	})
}

// Merge combines the sources into a new graph. Sources are processed in the
// order given for every kind, so the first source wins identifier collisions.
// The sources are never modified. On error no partial result is returned.
func (e *Engine) Merge(ctx context.Context, sources ...*graph.Graph) (*Result, error) {
	if len(sources) == 0 {
		return nil, errors.New("merge: no source feeds")
	}

	run := e.newRun(sources)
	log := run.logger
	log.Info("Merge started", zap.Strings("sources", run.report.Sources))

	for _, kind := range graph.MergeOrder {
		if err := ctx.Err(); err != nil {
			log.Warn("Merge aborted", zap.Stringer("before", kind), zap.Error(err))
			return nil, fmt.Errorf("%w before %s: %w", ErrAborted, kind, err)
		}

		summary := KindSummary{Kind: kind.String()}
		for _, src := range sources {
			if err := run.mergeKind(ctx, src, kind, &summary); err != nil {
				log.Error("Merge failed",
					zap.Stringer("kind", kind),
					zap.String("source", src.Name()),
					zap.Error(err))
				return nil, err
			}
		}
		run.report.Kinds = append(run.report.Kinds, summary)

		log.Debug("Kind merged",
			zap.Stringer("kind", kind),
			zap.Int("inserted", summary.Inserted),
			zap.Int("reused", summary.Reused),
			zap.Int("renamed", summary.Renamed))
	}

	if err := run.target.Validate(); err != nil {
		log.Error("Merged feed is inconsistent", zap.Error(err))
		return nil, fmt.Errorf("merged feed failed validation: %w", err)
	}

	run.report.FinishedAt = time.Now().UTC()
	log.Info("Merge completed",
		zap.String("run_id", run.id),
		zap.Int("renames", len(run.report.Renames)),
		zap.Int("matches", len(run.report.Matches)),
		zap.Duration("elapsed", run.report.FinishedAt.Sub(run.report.StartedAt)))

	return &Result{Target: run.target, Report: run.report}, nil
}

func (e *Engine) newRun(sources []*graph.Graph) *Run {
	id := uuid.NewString()
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name()
	}

	target := graph.New("merged")
	return &Run{
		id:         id,
		cfg:        e.cfg,
		modes:      e.modes,
		strategies: e.strategies,
		target:     target,
		cache:      cache.New(),
		tables:     newTables(),
		stops:      newStopIndex(e.cfg.StopToleranceMeters),
		namer:      newNamer(target, sources, e.cfg.MaxRenameAttempts),
		reused:     make(map[reuseKey]struct{}),
		report: &Report{
			RunID:     id,
			Sources:   names,
			StartedAt: time.Now().UTC(),
			Kinds:     []KindSummary{},
			Renames:   []Outcome{},
			Matches:   []Outcome{},
		},
		logger: e.logger.With(zap.String("run_id", id)),
	}
}

// mergeKind runs the pass of one kind over one source. Entities referencing
// their own kind are processed in levels: a level holds the entities whose
// self references are already remapped.
func (r *Run) mergeKind(ctx context.Context, src *graph.Graph, kind graph.Kind, summary *KindSummary) error {
	table := r.tables.create(src, kind)
	strategy := r.strategies[kind]

	pending := src.All(kind)
	for len(pending) > 0 {
		level, rest := r.ready(kind, pending, table)
		if len(level) == 0 {
			return r.unresolvedSelf(src, kind, rest[0], table)
		}

		candidates, err := r.prepare(ctx, src, level, strategy)
		if err != nil {
			return err
		}
		for _, c := range candidates {
			if err := r.decide(kind, strategy, c, table, summary); err != nil {
				return err
			}
		}
		pending = rest
	}

	table.freeze()
	return nil
}

// ready splits pending entities into those whose self references resolve in
// the table and the rest. Order is preserved in both.
func (r *Run) ready(kind graph.Kind, pending []graph.Entity, table *Table) ([]graph.Entity, []graph.Entity) {
	var level, rest []graph.Entity
	for _, e := range pending {
		if r.selfResolved(kind, e, table) {
			level = append(level, e)
		} else {
			rest = append(rest, e)
		}
	}
	return level, rest
}

func (r *Run) selfResolved(kind graph.Kind, e graph.Entity, table *Table) bool {
	for _, c := range graph.SchemaOf(kind).References() {
		if c.Target != kind {
			continue
		}
		id := e.Ref(c.Name)
		if id.IsZero() {
			continue
		}
		if _, ok := table.Lookup(id); !ok {
			return false
		}
	}
	return true
}

func (r *Run) unresolvedSelf(src *graph.Graph, kind graph.Kind, e graph.Entity, table *Table) error {
	for _, c := range graph.SchemaOf(kind).References() {
		if c.Target != kind {
			continue
		}
		id := e.Ref(c.Name)
		if _, ok := table.Lookup(id); !ok && !id.IsZero() {
			return &UnresolvedError{Source: src.Name(), Kind: kind, Entity: e.ID(), Column: c.Name, Ref: id}
		}
	}
	return fmt.Errorf("%s %s in %s cannot be ordered", kind, e.ID(), src.Name())
}

// prepare rewrites the references of a level and computes the signatures
// concurrently. Candidates come back in level order.
func (r *Run) prepare(ctx context.Context, src *graph.Graph, level []graph.Entity, strategy Strategy) ([]*Candidate, error) {
	candidates := make([]*Candidate, len(level))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, e := range level {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rewritten, err := r.rewrite(src, e, false)
			if err != nil {
				return err
			}
			c := &Candidate{Source: src, SourceID: e.ID(), Entity: rewritten}
			sig, err := cache.GetOrCompute(r.cache, cache.KeyOf(src, e), func() (any, error) {
				return strategy.Signature(r, c)
			})
			if err != nil {
				return fmt.Errorf("signature of %s %s in %s: %w", e.Kind(), e.ID(), src.Name(), err)
			}
			c.Signature = sig
			candidates[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		}
		return nil, err
	}
	return candidates, nil
}

// rewrite replaces the foreign keys of e with their target keys. Positional
// entities get a key derived from the rewritten parent. With skipParent the
// parent column and key are left alone.
func (r *Run) rewrite(src *graph.Graph, e graph.Entity, skipParent bool) (graph.Entity, error) {
	key := e.ID()
	refs := make(map[string]identity.ID)
	for _, c := range graph.SchemaOf(e.Kind()).References() {
		if skipParent && c.Role == graph.RoleParent {
			continue
		}
		from := e.Ref(c.Name)
		if from.IsZero() {
			continue
		}

		var to identity.ID
		ok := false
		if table := r.tables.Get(src, c.Target); table != nil {
			to, ok = table.Lookup(from)
		}
		if !ok {
			return nil, &UnresolvedError{Source: src.Name(), Kind: e.Kind(), Entity: e.ID(), Column: c.Name, Ref: from}
		}
		refs[c.Name] = to

		if c.Role == graph.RoleParent {
			key = graph.ChildKey(to, e.(graph.Positional).Sequence())
		}
	}
	return e.Rebind(key, refs), nil
}

// decide classifies one candidate, applies the override of its kind and
// records the mapping.
func (r *Run) decide(kind graph.Kind, strategy Strategy, c *Candidate, table *Table, summary *KindSummary) error {
	var verdict Verdict
	if r.underReusedParent(kind, c) {
		// The target parent keeps its own children. A renamed child would
		// repeat a (parent, sequence) pair, so matching keys are reused and
		// the rest is dropped.
		if !r.target.Has(kind, c.Entity.ID()) {
			summary.Dropped++
			summary.Total++
			r.logger.Debug("Child of reused parent dropped",
				zap.Stringer("kind", kind),
				zap.String("source", c.Source.Name()),
				zap.String("id", identity.Format(c.SourceID)))
			return nil
		}
		verdict = Verdict{Decision: Reuse, Match: c.Entity.ID(), Reason: "parent reused"}
	} else {
		var err error
		verdict, err = strategy.Classify(r, c)
		if err != nil {
			return fmt.Errorf("classify %s %s in %s: %w", kind, c.SourceID, c.Source.Name(), err)
		}
		verdict = r.override(kind, c, verdict)
	}

	var to identity.ID
	switch verdict.Decision {
	case Reuse:
		to = verdict.Match
		if !r.target.Has(kind, to) {
			return fmt.Errorf("%s %s in %s reuses missing target %s", kind, c.SourceID, c.Source.Name(), to)
		}
		summary.Reused++
		if graph.SchemaOf(kind).HasChild {
			r.reused[reuseKey{source: c.Source.Handle(), kind: kind, id: to}] = struct{}{}
		}
		if to != c.Entity.ID() {
			r.report.Matches = append(r.report.Matches, r.outcome(kind, c, to, verdict))
		}

	case Insert:
		to = c.Entity.ID()
		if err := r.insert(kind, strategy, c, to); err != nil {
			return err
		}
		summary.Inserted++

	case Conflict:
		renamed, err := r.namer.rename(kind, c.Entity.ID())
		if err != nil {
			return err
		}
		to = renamed
		if err := r.insert(kind, strategy, c, to); err != nil {
			return err
		}
		summary.Renamed++
		r.report.Renames = append(r.report.Renames, r.outcome(kind, c, to, verdict))
		r.logger.Debug("Identifier renamed",
			zap.Stringer("kind", kind),
			zap.String("source", c.Source.Name()),
			zap.String("from", identity.Format(c.SourceID)),
			zap.String("to", identity.Format(to)),
			zap.String("reason", verdict.Reason))

	default:
		return fmt.Errorf("classify %s %s: unknown decision %s", kind, c.SourceID, verdict.Decision)
	}

	summary.Total++
	return table.put(c.SourceID, to)
}

// underReusedParent reports whether c is a positional entity whose parent
// was mapped onto an existing target entity.
func (r *Run) underReusedParent(kind graph.Kind, c *Candidate) bool {
	parent, ok := graph.SchemaOf(kind).Parent()
	if !ok {
		return false
	}
	p, ok := c.Entity.(graph.Positional)
	if !ok {
		return false
	}
	_, reused := r.reused[reuseKey{source: c.Source.Handle(), kind: parent.Target, id: p.Parent()}]
	return reused
}

func (r *Run) insert(kind graph.Kind, strategy Strategy, c *Candidate, id identity.ID) error {
	entity := strategy.ApplyInsert(c, id)
	if err := r.target.Insert(entity); err != nil {
		return err
	}
	// Children are merged in later passes, so the signature of the target
	// entity is the one of the candidate that produced it.
	r.cache.Prime(cache.Key{Graph: r.target.Handle(), Kind: kind, ID: id}, c.Signature)
	if obs, ok := strategy.(insertObserver); ok {
		obs.inserted(r, c, entity)
	}
	return nil
}

func (r *Run) override(kind graph.Kind, c *Candidate, v Verdict) Verdict {
	id := c.Entity.ID()
	switch r.modes[kind] {
	case ModeInsertOnly:
		if v.Decision != Reuse {
			return v
		}
		if r.target.Has(kind, id) {
			return Verdict{Decision: Conflict, Reason: "insert_only override"}
		}
		return Verdict{Decision: Insert}
	case ModeReuseOnly:
		if v.Decision == Conflict && r.target.Has(kind, id) {
			return Verdict{Decision: Reuse, Match: id, Reason: "reuse_only override"}
		}
	}
	return v
}

func (r *Run) outcome(kind graph.Kind, c *Candidate, to identity.ID, v Verdict) Outcome {
	return Outcome{
		Source:   c.Source.Name(),
		Kind:     kind.String(),
		From:     identity.Format(c.SourceID),
		To:       identity.Format(to),
		Decision: v.Decision,
		Reason:   v.Reason,
	}
}
