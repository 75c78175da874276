// Package schema compiles the embedded CUE table catalog into the list of
// tables the store creates at bootstrap.
package schema

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed tables.cue
var catalogSource string

// Table names of the fixed catalog.
const (
	Users         = "users"
	Posts         = "posts"
	Groups        = "groups"
	Chats         = "chats"
	Notifications = "notifications"
	Relationships = "relationships"
	VIPAccess     = "vip_access"
	Marketplace   = "marketplace"
	Ads           = "ads"
)

// Wildcard is the subscription key that matches every table.
const Wildcard = "all"

// KeyKind describes how a table's primary key is formed.
type KeyKind string

const (
	// KeyID is a plain entity id.
	KeyID KeyKind = "id"
	// KeyComposite is synthesized from two foreign ids.
	KeyComposite KeyKind = "composite"
)

// Table describes one catalog entry.
type Table struct {
	Name     string
	Ordered  bool
	Key      KeyKind
	Position int
}

var validName = regexp.MustCompile(`^[a-z][a-z_]*$`)

// ValidName reports whether name can be used as a table name.
// Names are interpolated into SQL, so the check is strict.
func ValidName(name string) bool {
	return validName.MatchString(name) && name != Wildcard
}

// Load compiles the embedded catalog.
func Load() ([]Table, error) {
	return Compile(catalogSource)
}

// Compile compiles a catalog from CUE source. Tables are returned in
// position order.
func Compile(src string) ([]Table, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename("tables.cue"))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog: %w", err)
	}

	tablesVal := value.LookupPath(cue.ParsePath("tables"))
	if !tablesVal.Exists() {
		return nil, fmt.Errorf("catalog has no tables")
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}

	var tables []Table
	seen := make(map[int]string)
	for iter.Next() {
		t, err := parseTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", iter.Label(), err)
		}
		if other, ok := seen[t.Position]; ok {
			return nil, fmt.Errorf("table %q: position %d already used by %q", t.Name, t.Position, other)
		}
		seen[t.Position] = t.Name
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("catalog has no tables")
	}

	sort.Slice(tables, func(i, j int) bool { return tables[i].Position < tables[j].Position })
	return tables, nil
}

func parseTable(label string, v cue.Value) (Table, error) {
	if !ValidName(label) {
		return Table{}, fmt.Errorf("invalid table name")
	}

	ordered, err := field(v, "ordered").Bool()
	if err != nil {
		return Table{}, fmt.Errorf("ordered: %w", err)
	}
	key, err := field(v, "key").String()
	if err != nil {
		return Table{}, fmt.Errorf("key: %w", err)
	}
	pos, err := field(v, "position").Int64()
	if err != nil {
		return Table{}, fmt.Errorf("position: %w", err)
	}

	return Table{
		Name:     label,
		Ordered:  ordered,
		Key:      KeyKind(key),
		Position: int(pos),
	}, nil
}

// field resolves a field to its default when it has one.
func field(v cue.Value, name string) cue.Value {
	f := v.LookupPath(cue.ParsePath(name))
	if d, ok := f.Default(); ok {
		return d
	}
	return f
}
