package pantry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"recipeagent"
	"recipeagent/storage"
)

type Category string

const (
	CategoryProtein   Category = "protein"
	CategoryVegetable Category = "vegetable"
	CategoryGrain     Category = "grain"
	CategoryCondiment Category = "condiment"
	CategoryDairy     Category = "dairy"
	CategoryOther     Category = "other"
)

// Categories in display order.
var Categories = []Category{
	CategoryProtein,
	CategoryVegetable,
	CategoryGrain,
	CategoryDairy,
	CategoryCondiment,
	CategoryOther,
}

func validCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Item is one pantry entry. Name is the unique key, compared case-insensitively.
type Item struct {
	Name     string    `json:"name"`
	Category Category  `json:"category"`
	Quantity string    `json:"quantity,omitempty"`
	Added    time.Time `json:"added,omitempty"`
}

// record is the on-disk value; the ingredient name is the document key.
type record struct {
	Category Category  `json:"category"`
	Quantity string    `json:"quantity,omitempty"`
	Added    time.Time `json:"added,omitempty"`
}

// document is the persisted pantry shape: one object keyed by ingredient name,
// replaced wholesale on every mutation.
type document struct {
	Ingredients map[string]record `json:"ingredients"`
	LastUpdated time.Time         `json:"last_updated,omitzero"`
}

// Store is the pantry backed by a whole-document State. It is shared mutable
// state across sessions; the mutex serializes read-modify-write cycles within
// this process, and the State's replace-on-write keeps concurrent processes
// from observing partial documents.
type Store struct {
	state storage.State

	mu sync.Mutex
}

func NewStore(state storage.State) *Store {
	return &Store{state: state}
}

// Normalize returns the canonical form of an ingredient name used as the
// document key: lowercase, surrounding whitespace trimmed.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *Store) load(ctx context.Context) (document, error) {
	b, err := s.state.Load(ctx)
	if errors.Is(err, storage.ErrNotExist) {
		return document{Ingredients: map[string]record{}}, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("read pantry: %w", err)
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return document{}, fmt.Errorf("decode pantry: %w", err)
	}
	if doc.Ingredients == nil {
		doc.Ingredients = map[string]record{}
	}
	return doc, nil
}

func (s *Store) save(ctx context.Context, doc document) error {
	doc.LastUpdated = time.Now().UTC()
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pantry: %w", err)
	}
	if err := s.state.Save(ctx, b); err != nil {
		return fmt.Errorf("write pantry: %w", err)
	}
	return nil
}

// Items returns all pantry items sorted by name.
func (s *Store) Items(ctx context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(doc.Ingredients))
	for name, rec := range doc.Ingredients {
		items = append(items, Item{Name: name, Category: rec.Category, Quantity: rec.Quantity, Added: rec.Added})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// Names returns the sorted ingredient names.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names, nil
}

// ByCategory groups pantry items by category, each group sorted by name.
func (s *Store) ByCategory(ctx context.Context) (map[Category][]Item, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}

	grouped := make(map[Category][]Item)
	for _, it := range items {
		cat := it.Category
		if !validCategory(cat) {
			cat = CategoryOther
		}
		grouped[cat] = append(grouped[cat], it)
	}
	return grouped, nil
}

// Add merges items into the pantry by normalized name. An item with a name
// already present overwrites the existing entry. Missing categories are
// inferred from the lookup table, falling back to "other". Returns the total
// item count after the merge.
func (s *Store) Add(ctx context.Context, items []Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for _, it := range items {
		name := Normalize(it.Name)
		if name == "" {
			continue
		}
		cat := it.Category
		if !validCategory(cat) {
			cat = InferCategory(name)
		}
		doc.Ingredients[name] = record{
			Category: cat,
			Quantity: strings.TrimSpace(it.Quantity),
			Added:    now,
		}
	}

	if err := s.save(ctx, doc); err != nil {
		return 0, err
	}
	return len(doc.Ingredients), nil
}

// Remove deletes items by normalized name. Names not present are skipped, not
// errors. Returns the remaining item count.
func (s *Store) Remove(ctx context.Context, names []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	for _, name := range names {
		delete(doc.Ingredients, Normalize(name))
	}

	if err := s.save(ctx, doc); err != nil {
		return 0, err
	}
	return len(doc.Ingredients), nil
}

// Diff returns the required ingredients not covered by the pantry, in the
// order given. Coverage is a case-insensitive substring match in either
// direction, so pantry "basil" covers "fresh basil" and pantry "chicken
// breast" covers "chicken". Quantities are ignored. The extra names join the
// pantry for this call only.
func (s *Store) Diff(ctx context.Context, required []recipeagent.Ingredient, extra ...string) ([]recipeagent.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	have := make([]string, 0, len(doc.Ingredients)+len(extra))
	for name := range doc.Ingredients {
		have = append(have, name)
	}
	for _, name := range extra {
		if n := Normalize(name); n != "" {
			have = append(have, n)
		}
	}

	missing := make([]recipeagent.Ingredient, 0)
	for _, ing := range required {
		if !covered(Normalize(ing.Name), have) {
			missing = append(missing, ing)
		}
	}
	return missing, nil
}

// covered reports whether any pantry name matches the required name, where a
// match is a substring in either direction.
func covered(want string, have []string) bool {
	if want == "" {
		return false
	}
	for _, h := range have {
		if strings.Contains(want, h) || strings.Contains(h, want) {
			return true
		}
	}
	return false
}
