package petrovisor

import (
	"context"
	"strings"
	"time"
)

// ScopeOverrides replace parts of a resolved scope. Nil fields keep the
// stored value.
type ScopeOverrides struct {
	TimeStart      *time.Time
	TimeEnd        *time.Time
	TimeIncrement  *TimeIncrement
	DepthStart     *float64
	DepthEnd       *float64
	DepthIncrement *DepthIncrement
}

func (o ScopeOverrides) set() bool {
	return o.TimeStart != nil || o.TimeEnd != nil || o.TimeIncrement != nil ||
		o.DepthStart != nil || o.DepthEnd != nil || o.DepthIncrement != nil
}

// ContextOptions build or override a context. Every set field takes
// precedence over the stored context.
type ContextOptions struct {
	Scope string
	ScopeOverrides

	EntitySet   string
	Entities    []string
	EntityTypes []string

	Hierarchy    string
	Relationship map[string]string
}

// ContextScope groups scope, entity set, hierarchy and context operations.
type ContextScope struct {
	c *Client
}

// Contexts returns the context operations.
func (c *Client) Contexts() *ContextScope { return &ContextScope{c: c} }

// getIfExists decodes the named item into dst when it exists and reports
// whether it did.
func (s *ContextScope) getIfExists(ctx context.Context, t ItemType, name string, dst any) (bool, error) {
	if name == "" {
		return false, nil
	}
	items := s.c.Items(t)
	ok, err := items.Exists(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	if err := items.GetInto(ctx, name, dst); err != nil {
		return false, err
	}
	return true, nil
}

// ResolveScope loads the named scope, or starts from an empty one of that
// name, and applies the overrides.
func (s *ContextScope) ResolveScope(ctx context.Context, name string, o ScopeOverrides) (*Scope, error) {
	sc := &Scope{Name: name}
	if _, err := s.getIfExists(ctx, ItemScope, name, sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = name
	}
	applyScopeOverrides(sc, o)
	return sc, nil
}

func applyScopeOverrides(sc *Scope, o ScopeOverrides) {
	if o.TimeStart != nil {
		sc.Start = NewTimestamp(*o.TimeStart)
	}
	if o.TimeEnd != nil {
		sc.End = NewTimestamp(*o.TimeEnd)
	}
	if o.TimeIncrement != nil {
		inc := *o.TimeIncrement
		sc.TimeIncrement = &inc
	}
	if o.DepthStart != nil {
		v := *o.DepthStart
		sc.StartDepth = &v
	}
	if o.DepthEnd != nil {
		v := *o.DepthEnd
		sc.EndDepth = &v
	}
	if o.DepthIncrement != nil {
		inc := *o.DepthIncrement
		sc.DepthIncrement = &inc
	}
}

// ResolveEntitySet loads the named entity set, or starts from an empty one.
// Given entities replace the stored ones; entity types filter them, or
// select every entity of those types when no entities are known.
func (s *ContextScope) ResolveEntitySet(ctx context.Context, name string, entities, entityTypes []string) (*EntitySet, error) {
	set := &EntitySet{Name: name}
	found, err := s.getIfExists(ctx, ItemEntitySet, name, set)
	if err != nil {
		return nil, err
	}
	if set.Name == "" {
		set.Name = name
	}
	if found && set.Entities != nil && entities == nil && entityTypes == nil {
		return set, nil
	}

	var members []Entity
	for _, n := range entities {
		e, err := s.c.Entities().Get(ctx, n)
		if err != nil {
			return nil, err
		}
		if e != nil {
			members = append(members, *e)
		}
	}
	if len(entityTypes) > 0 {
		if len(members) > 0 {
			filtered := members[:0]
			for _, e := range members {
				if containsFold(entityTypes, e.Type) {
					filtered = append(filtered, e)
				}
			}
			members = filtered
		} else {
			for _, t := range entityTypes {
				typed, err := s.c.Entities().List(ctx, EntityFilter{Type: t})
				if err != nil {
					return nil, err
				}
				members = append(members, typed...)
			}
		}
	}
	if members == nil {
		members = []Entity{}
	}
	set.Entities = members
	return set, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ResolveHierarchy loads the named hierarchy, or starts from an empty one.
// A given relationship replaces the stored one.
func (s *ContextScope) ResolveHierarchy(ctx context.Context, name string, relationship map[string]string) (*Hierarchy, error) {
	h := &Hierarchy{Name: name}
	if _, err := s.getIfExists(ctx, ItemHierarchy, name, h); err != nil {
		return nil, err
	}
	if h.Name == "" {
		h.Name = name
	}
	if h.Relationship == nil || relationship != nil {
		h.Relationship = map[string]*string{}
		for child, parent := range relationship {
			if parent == "" {
				h.Relationship[child] = nil
				continue
			}
			p := parent
			h.Relationship[child] = &p
		}
	}
	return h, nil
}

// ResolveContext loads the named context, or starts from an empty one, and
// resolves its scope, entity set and hierarchy under the options. A
// hierarchy without relationships is dropped.
func (s *ContextScope) ResolveContext(ctx context.Context, name string, o ContextOptions) (*Context, error) {
	c := &Context{Name: name}
	if _, err := s.getIfExists(ctx, ItemContext, name, c); err != nil {
		return nil, err
	}
	if c.Name == "" {
		c.Name = name
	}

	if c.Scope == nil || o.Scope != "" || o.ScopeOverrides.set() {
		base := o.Scope
		if base == "" && c.Scope != nil {
			base = c.Scope.Name
		}
		sc, err := s.ResolveScope(ctx, base, o.ScopeOverrides)
		if err != nil {
			return nil, err
		}
		c.Scope = sc
	}
	if c.EntitySet == nil || o.EntitySet != "" || o.Entities != nil || o.EntityTypes != nil {
		set, err := s.ResolveEntitySet(ctx, o.EntitySet, o.Entities, o.EntityTypes)
		if err != nil {
			return nil, err
		}
		c.EntitySet = set
	}
	if c.Hierarchy == nil || o.Hierarchy != "" || o.Relationship != nil {
		h, err := s.ResolveHierarchy(ctx, o.Hierarchy, o.Relationship)
		if err != nil {
			return nil, err
		}
		c.Hierarchy = h
	}
	if c.Hierarchy != nil && len(c.Hierarchy.Relationship) == 0 {
		c.Hierarchy = nil
	}
	return c, nil
}

// MergeScopes returns the union of the scopes: the earliest start, the
// latest end and the finest increment of each axis. A single scope is
// returned as is.
func MergeScopes(scopes ...*Scope) *Scope {
	scopes = nonNil(scopes)
	switch len(scopes) {
	case 0:
		return nil
	case 1:
		return scopes[0]
	}
	out := &Scope{Name: "Merged Scope"}
	var timeIncs []TimeIncrement
	var depthIncs []DepthIncrement
	for _, sc := range scopes {
		if sc.Start != nil && (out.Start == nil || sc.Start.Before(out.Start.Time)) {
			out.Start = NewTimestamp(sc.Start.Time)
		}
		if sc.End != nil && (out.End == nil || sc.End.After(out.End.Time)) {
			out.End = NewTimestamp(sc.End.Time)
		}
		if sc.StartDepth != nil && (out.StartDepth == nil || *sc.StartDepth < *out.StartDepth) {
			v := *sc.StartDepth
			out.StartDepth = &v
		}
		if sc.EndDepth != nil && (out.EndDepth == nil || *sc.EndDepth > *out.EndDepth) {
			v := *sc.EndDepth
			out.EndDepth = &v
		}
		if sc.TimeIncrement != nil {
			timeIncs = append(timeIncs, *sc.TimeIncrement)
		}
		if sc.DepthIncrement != nil {
			depthIncs = append(depthIncs, *sc.DepthIncrement)
		}
	}
	if inc := MinTimeIncrement(timeIncs...); inc != 0 {
		out.TimeIncrement = &inc
	}
	if len(depthIncs) > 0 {
		inc := MinDepthIncrement(depthIncs[0], depthIncs[1:]...)
		out.DepthIncrement = &inc
	}
	return out
}

// MergeEntitySets concatenates the entities of the sets in order.
func MergeEntitySets(sets ...*EntitySet) *EntitySet {
	sets = nonNil(sets)
	switch len(sets) {
	case 0:
		return nil
	case 1:
		return sets[0]
	}
	out := &EntitySet{Name: "Merged EntitySet", Entities: []Entity{}}
	for _, s := range sets {
		out.Entities = append(out.Entities, s.Entities...)
	}
	return out
}

// MergeHierarchies unions the relationships; later hierarchies win on
// conflicting children.
func MergeHierarchies(hs ...*Hierarchy) *Hierarchy {
	hs = nonNil(hs)
	switch len(hs) {
	case 0:
		return nil
	case 1:
		return hs[0]
	}
	out := &Hierarchy{Name: "Merged Hierarchy", Relationship: map[string]*string{}}
	for _, h := range hs {
		for child, parent := range h.Relationship {
			out.Relationship[child] = parent
		}
	}
	return out
}

// MergeContexts merges the scopes, entity sets and hierarchies of the
// contexts.
func MergeContexts(cs ...*Context) *Context {
	cs = nonNil(cs)
	switch len(cs) {
	case 0:
		return nil
	case 1:
		return cs[0]
	}
	var (
		scopes []*Scope
		sets   []*EntitySet
		hs     []*Hierarchy
	)
	for _, c := range cs {
		scopes = append(scopes, c.Scope)
		sets = append(sets, c.EntitySet)
		hs = append(hs, c.Hierarchy)
	}
	return &Context{
		Name:      "Merged Context",
		Scope:     MergeScopes(scopes...),
		EntitySet: MergeEntitySets(sets...),
		Hierarchy: MergeHierarchies(hs...),
	}
}

func nonNil[T any](xs []*T) []*T {
	out := make([]*T, 0, len(xs))
	for _, x := range xs {
		if x != nil {
			out = append(out, x)
		}
	}
	return out
}

// AddScope stores a scope.
func (s *ContextScope) AddScope(ctx context.Context, sc *Scope) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	return s.c.Items(ItemScope).Add(ctx, sc)
}

// GetScope returns the named scope.
func (s *ContextScope) GetScope(ctx context.Context, name string) (*Scope, error) {
	var sc *Scope
	if err := s.c.Items(ItemScope).GetInto(ctx, name, &sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// DeleteScope removes the named scope.
func (s *ContextScope) DeleteScope(ctx context.Context, name string) error {
	return s.c.Items(ItemScope).Delete(ctx, name)
}

// AddEntitySet stores an entity set.
func (s *ContextScope) AddEntitySet(ctx context.Context, set *EntitySet) error {
	return s.c.Items(ItemEntitySet).Add(ctx, set)
}

// GetEntitySet returns the named entity set.
func (s *ContextScope) GetEntitySet(ctx context.Context, name string) (*EntitySet, error) {
	var set *EntitySet
	if err := s.c.Items(ItemEntitySet).GetInto(ctx, name, &set); err != nil {
		return nil, err
	}
	return set, nil
}

// DeleteEntitySet removes the named entity set.
func (s *ContextScope) DeleteEntitySet(ctx context.Context, name string) error {
	return s.c.Items(ItemEntitySet).Delete(ctx, name)
}

// AddHierarchy stores a hierarchy.
func (s *ContextScope) AddHierarchy(ctx context.Context, h *Hierarchy) error {
	return s.c.Items(ItemHierarchy).Add(ctx, h)
}

// GetHierarchy returns the named hierarchy.
func (s *ContextScope) GetHierarchy(ctx context.Context, name string) (*Hierarchy, error) {
	var h *Hierarchy
	if err := s.c.Items(ItemHierarchy).GetInto(ctx, name, &h); err != nil {
		return nil, err
	}
	return h, nil
}

// DeleteHierarchy removes the named hierarchy.
func (s *ContextScope) DeleteHierarchy(ctx context.Context, name string) error {
	return s.c.Items(ItemHierarchy).Delete(ctx, name)
}

// AddContext stores a context.
func (s *ContextScope) AddContext(ctx context.Context, c *Context) error {
	return s.c.Items(ItemContext).Add(ctx, c)
}

// GetContext returns the named context.
func (s *ContextScope) GetContext(ctx context.Context, name string) (*Context, error) {
	var c *Context
	if err := s.c.Items(ItemContext).GetInto(ctx, name, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteContext removes the named context.
func (s *ContextScope) DeleteContext(ctx context.Context, name string) error {
	return s.c.Items(ItemContext).Delete(ctx, name)
}
