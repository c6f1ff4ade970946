package petrovisor

import (
	"context"
	"net/url"
	"slices"
)

// EntityScope groups entity and entity type operations.
type EntityScope struct {
	c *Client
}

// Entities returns the entity operations.
func (c *Client) Entities() *EntityScope { return &EntityScope{c: c} }

// Get returns the named entity.
func (s *EntityScope) Get(ctx context.Context, name string) (*Entity, error) {
	var e *Entity
	if err := s.c.get(ctx, "entities.get", "Entities/"+name, nil, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetByAlias returns the entity with the given alias.
func (s *EntityScope) GetByAlias(ctx context.Context, alias string) (*Entity, error) {
	var e *Entity
	if err := s.c.get(ctx, "entities.alias", "Entities/"+alias+"/Entity", nil, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// EntityFilter narrows entity listings. Empty fields match everything.
type EntityFilter struct {
	Type   string
	Signal string
}

// List returns the entities matching f.
func (s *EntityScope) List(ctx context.Context, f EntityFilter) ([]Entity, error) {
	p := "Entities/All"
	if f.Type != "" {
		p = "Entities/" + f.Type + "/Entities"
	}
	var entities []Entity
	if err := s.c.get(ctx, "entities.list", p, nil, &entities); err != nil {
		return nil, err
	}
	if f.Signal == "" {
		return entities, nil
	}
	names, err := s.signalEntityNames(ctx, f.Signal)
	if err != nil || len(names) == 0 {
		return entities, err
	}
	return slices.DeleteFunc(entities, func(e Entity) bool { return !slices.Contains(names, e.Name) }), nil
}

// Names returns the names of the entities matching f.
func (s *EntityScope) Names(ctx context.Context, f EntityFilter) ([]string, error) {
	switch {
	case f.Signal != "":
		names, err := s.signalEntityNames(ctx, f.Signal)
		if err != nil || f.Type == "" || len(names) == 0 {
			return names, err
		}
		typed, err := s.Names(ctx, EntityFilter{Type: f.Type})
		if err != nil || len(typed) == 0 {
			return names, err
		}
		return slices.DeleteFunc(names, func(n string) bool { return !slices.Contains(typed, n) }), nil
	case f.Type != "":
		entities, err := s.List(ctx, EntityFilter{Type: f.Type})
		if err != nil {
			return nil, err
		}
		names := make([]string, len(entities))
		for i, e := range entities {
			names[i] = e.Name
		}
		return names, nil
	}
	names, err := s.c.Items(ItemEntity).Names(ctx)
	if names == nil && err == nil {
		names = []string{}
	}
	return names, err
}

func (s *EntityScope) signalEntityNames(ctx context.Context, signal string) ([]string, error) {
	var names []string
	if err := s.c.get(ctx, "entities.signal", "Signals/"+signal+"/Entities", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Types returns the names of all entity types.
func (s *EntityScope) Types(ctx context.Context) ([]string, error) {
	return s.c.Items(ItemEntityType).Names(ctx)
}

// AddOrEdit creates or updates entities in one request.
func (s *EntityScope) AddOrEdit(ctx context.Context, entities ...Entity) error {
	for i := range entities {
		if err := entities[i].Validate(); err != nil {
			return err
		}
	}
	return s.c.post(ctx, "entities.add", "Entities/AddOrEdit", nil, entities, nil)
}

// Delete removes entities in one request.
func (s *EntityScope) Delete(ctx context.Context, entities ...Entity) error {
	return s.c.post(ctx, "entities.delete", "Entities/Delete", nil, entities, nil)
}

// Rename renames an entity.
func (s *EntityScope) Rename(ctx context.Context, oldName, newName string) error {
	q := url.Values{"OldName": {oldName}, "NewName": {newName}}
	return s.c.post(ctx, "entities.rename", "Entities/Rename", q, nil, nil)
}

// RenameType renames an entity type.
func (s *EntityScope) RenameType(ctx context.Context, oldName, newName string) error {
	q := url.Values{"OldName": {oldName}, "NewName": {newName}}
	return s.c.post(ctx, "entitytypes.rename", "EntityTypes/Rename", q, nil, nil)
}
