package attribute

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// Index maps full names to attributes in insertion order.
// It is built once per run and shared read-only by every filter stage.
type Index struct {
	attrs  *orderedmap.OrderedMap[string, *Attribute]
	tables *orderedmap.OrderedMap[string, []*Attribute]
}

// NewIndex builds an index from attributes. A repeated full name is an error.
func NewIndex(attrs ...*Attribute) (*Index, error) {
	idx := &Index{
		attrs:  orderedmap.NewOrderedMap[string, *Attribute](),
		tables: orderedmap.NewOrderedMap[string, []*Attribute](),
	}
	for _, a := range attrs {
		if err := idx.Add(a); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Add appends an attribute.
func (idx *Index) Add(a *Attribute) error {
	name := a.FullName()
	if _, exists := idx.attrs.Get(name); exists {
		return fmt.Errorf("duplicate attribute %s", name)
	}
	idx.attrs.Set(name, a)

	byTable, _ := idx.tables.Get(a.TableName)
	idx.tables.Set(a.TableName, append(byTable, a))
	return nil
}

// Get looks an attribute up by full name.
func (idx *Index) Get(fullName string) (*Attribute, bool) {
	return idx.attrs.Get(fullName)
}

// ByTable returns the attributes of a table in column order.
func (idx *Index) ByTable(table string) []*Attribute {
	attrs, _ := idx.tables.Get(table)
	return attrs
}

// Tables returns the table names in first-seen order.
func (idx *Index) Tables() []string {
	return idx.tables.Keys()
}

// Len returns the number of attributes.
func (idx *Index) Len() int {
	return idx.attrs.Len()
}

// Each visits attributes in insertion order.
func (idx *Index) Each(fn func(*Attribute)) {
	for el := idx.attrs.Front(); el != nil; el = el.Next() {
		fn(el.Value)
	}
}
