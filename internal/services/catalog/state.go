package catalog

import (
	"sort"
	"strings"

	"standoff-tracker/internal/models"
)

// State is the in-memory deduplication index for one reconciliation run.
// It is built fresh from the persistent catalog at the start of every run
// and updated as new items are staged, so a batch can never create two
// items with the same identity key.
type State struct {
	byRawName  map[string]*models.Item // lower(OriginalName)
	byKey      map[string]*models.Item // identity key
	byFullName map[string]*models.Item // lower(FullName) and lower(OriginalName)

	items       []*models.Item               // ID-ascending, for deterministic fuzzy search
	collections map[string]*models.Collection // lower(name)

	newItems       []*models.Item
	newCollections []*models.Collection
	dirty          map[*models.Item]bool
}

// BuildState indexes the existing catalog.
func BuildState(items []*models.Item, collections []*models.Collection) *State {
	s := &State{
		byRawName:   make(map[string]*models.Item, len(items)),
		byKey:       make(map[string]*models.Item, len(items)),
		byFullName:  make(map[string]*models.Item, len(items)),
		collections: make(map[string]*models.Collection, len(collections)),
		dirty:       make(map[*models.Item]bool),
	}

	s.items = append(s.items, items...)
	sort.Slice(s.items, func(i, j int) bool { return s.items[i].ID < s.items[j].ID })

	for _, item := range s.items {
		if raw := strings.ToLower(strings.TrimSpace(item.OriginalName)); raw != "" {
			if _, ok := s.byRawName[raw]; !ok {
				s.byRawName[raw] = item
			}
		}
		if _, ok := s.byKey[item.Key()]; !ok {
			s.byKey[item.Key()] = item
		}
		for _, full := range []string{item.FullName(), item.OriginalName} {
			full = strings.ToLower(strings.TrimSpace(full))
			if full == "" {
				continue
			}
			if _, ok := s.byFullName[full]; !ok {
				s.byFullName[full] = item
			}
		}
	}

	for _, col := range collections {
		s.collections[strings.ToLower(col.Name)] = col
	}

	return s
}

// stage registers a newly created item in every index so later entries of the
// same batch are matched against it.
func (s *State) stage(item *models.Item) {
	s.newItems = append(s.newItems, item)
	s.items = append(s.items, item)
	s.byKey[item.Key()] = item
	if raw := strings.ToLower(strings.TrimSpace(item.OriginalName)); raw != "" {
		s.byRawName[raw] = item
	}
	if full := strings.ToLower(item.FullName()); full != "" {
		s.byFullName[full] = item
	}
}

// markDirty records an in-place update for the final commit.
func (s *State) markDirty(item *models.Item) {
	if item.ID != 0 { // staged items are written via newItems anyway
		s.dirty[item] = true
	}
}

// collection resolves a collection by name, lazily creating it when missing.
// Sentinel "unknown" names resolve to nil.
func (s *State) collection(name string) *models.Collection {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "unknown") {
		return nil
	}
	if col, ok := s.collections[strings.ToLower(name)]; ok {
		return col
	}
	col := &models.Collection{Name: name}
	s.collections[strings.ToLower(name)] = col
	s.newCollections = append(s.newCollections, col)
	return col
}

func (s *State) dirtyItems() []*models.Item {
	out := make([]*models.Item, 0, len(s.dirty))
	for item := range s.dirty {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
