// Package catalog collects the package-wide bindings that query analysis
// depends on: which resource names denote persisted entities, which class
// types are persistence clients, and the declared type of every variable.
//
// The catalog is filled in one phase over all documents of a package
// (Register) and is read-only afterwards.
package catalog

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/roach88/persistsql/internal/syntax"
)

const (
	// DefaultEntityFile is the document that declares persisted entities.
	DefaultEntityFile = "persist_types.bal"

	// DefaultClientMarker is the class member that marks a class as a
	// generated persistence client.
	DefaultClientMarker = "*persist:AbstractPersistClient;"
)

// Options configures which documents and members the catalog recognizes.
type Options struct {
	EntityFile   string // base name of the entity declaration document
	ClientMarker string // class member identifying a client type
}

// DefaultOptions returns the standard entity file and client marker.
func DefaultOptions() Options {
	return Options{EntityFile: DefaultEntityFile, ClientMarker: DefaultClientMarker}
}

// Catalog holds entity, client type and variable bindings.
type Catalog struct {
	opts        Options
	entities    map[string]string   // plural lowercase resource name → entity name
	clientTypes map[string]struct{} // client class names
	variables   map[string]string   // variable name → last segment of declared type
}

// New creates an empty catalog. Zero-valued option fields fall back to the
// defaults.
func New(opts Options) *Catalog {
	if opts.EntityFile == "" {
		opts.EntityFile = DefaultEntityFile
	}
	if opts.ClientMarker == "" {
		opts.ClientMarker = DefaultClientMarker
	}
	return &Catalog{
		opts:        opts,
		entities:    make(map[string]string),
		clientTypes: make(map[string]struct{}),
		variables:   make(map[string]string),
	}
}

// ResourceName returns the resource path segment under which an entity is
// exposed: the lowercase plural of its name ("Product" → "products").
func ResourceName(entity string) string {
	return inflection.Plural(strings.ToLower(syntax.StripEscape(entity)))
}

// Register records the bindings declared by doc.
//
// Closed record types are only taken from the entity document; client
// classes and variables are taken from any document. Registering the same
// document again leaves the catalog unchanged.
func (c *Catalog) Register(doc *syntax.Document) {
	entityDoc := path.Base(doc.Name) == c.opts.EntityFile
	syntax.Inspect(doc, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.TypeDef:
			if entityDoc && n.Closed {
				name := syntax.StripEscape(n.Name)
				c.entities[ResourceName(name)] = name
			}
		case *syntax.ClassDef:
			if c.isClient(n) {
				c.clientTypes[syntax.StripEscape(n.Name)] = struct{}{}
			}
		case *syntax.VarDecl:
			c.variables[syntax.StripEscape(n.Name)] = lastSegment(n.Type)
		}
		return true
	})
	slog.Debug("catalog registered document",
		"document", doc.Name,
		"entities", len(c.entities),
		"client_types", len(c.clientTypes),
		"variables", len(c.variables))
}

func (c *Catalog) isClient(class *syntax.ClassDef) bool {
	for _, m := range class.Members {
		if strings.TrimSpace(m) == c.opts.ClientMarker {
			return true
		}
	}
	return false
}

func lastSegment(typ string) string {
	parts := strings.Split(strings.TrimSpace(typ), ":")
	return syntax.StripEscape(parts[len(parts)-1])
}

// Entity resolves a resource path segment to an entity name.
func (c *Catalog) Entity(resource string) (string, bool) {
	name, ok := c.entities[syntax.StripEscape(strings.TrimSpace(resource))]
	return name, ok
}

// IsClientType reports whether name is a registered client class.
func (c *Catalog) IsClientType(name string) bool {
	_, ok := c.clientTypes[name]
	return ok
}

// IsClientVariable reports whether the variable is declared with a client
// type. Client types are resolved before variables, so the answer does not
// depend on registration order.
func (c *Catalog) IsClientVariable(name string) bool {
	typ, ok := c.variables[syntax.StripEscape(name)]
	if !ok {
		return false
	}
	return c.IsClientType(typ)
}

// VariableType returns the last segment of the variable's declared type.
func (c *Catalog) VariableType(name string) (string, bool) {
	typ, ok := c.variables[syntax.StripEscape(name)]
	return typ, ok
}

// Entities returns the entity bindings keyed by resource name.
func (c *Catalog) Entities() map[string]string {
	out := make(map[string]string, len(c.entities))
	for k, v := range c.entities {
		out[k] = v
	}
	return out
}

// ClientTypes returns the registered client class names, sorted.
func (c *Catalog) ClientTypes() []string {
	return sortedKeys(c.clientTypes)
}

// ClientVariables returns the names of variables of a client type, sorted.
func (c *Catalog) ClientVariables() []string {
	var out []string
	for name, typ := range c.variables {
		if c.IsClientType(typ) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Ready reports whether the catalog knows at least one entity and one
// client type. Queries cannot resolve against a catalog that is not ready.
func (c *Catalog) Ready() bool {
	return len(c.entities) > 0 && len(c.clientTypes) > 0
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
