package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistsql/internal/syntax"
)

func entityDoc() *syntax.Document {
	return &syntax.Document{
		Name: "modules/entities/persist_types.bal",
		Members: []syntax.Member{
			&syntax.TypeDef{Name: "Product", Closed: true},
			&syntax.TypeDef{Name: "Person", Closed: true},
			&syntax.TypeDef{Name: "'Order", Closed: true},
			&syntax.TypeDef{Name: "Draft", Closed: false},
			&syntax.ClassDef{
				Qualifiers: []string{"public", "isolated", "client"},
				Name:       "Client",
				Members:    []string{"  *persist:AbstractPersistClient;  ", "private final map<string> x;"},
			},
		},
	}
}

func mainDoc(t *testing.T) *syntax.Document {
	t.Helper()
	stmt, err := syntax.ParseStatement("main.bal", 10,
		"entities:Product[] products = check from var e in mcClient->/products(targetType = entities:Product) select e;")
	require.NoError(t, err)
	return &syntax.Document{
		Name: "main.bal",
		Members: []syntax.Member{
			&syntax.VarDecl{Type: "entities:Client", Name: "mcClient"},
			&syntax.VarDecl{Type: "http:Client", Name: "httpClient"},
			&syntax.VarDecl{Type: "int", Name: "value"},
			&syntax.TypeDef{Name: "Local", Closed: true},
			stmt,
		},
	}
}

func TestRegister_Entities(t *testing.T) {
	c := New(DefaultOptions())
	c.Register(entityDoc())

	name, ok := c.Entity("products")
	require.True(t, ok)
	assert.Equal(t, "Product", name)

	name, ok = c.Entity("people")
	require.True(t, ok)
	assert.Equal(t, "Person", name)

	name, ok = c.Entity("orders")
	require.True(t, ok)
	assert.Equal(t, "Order", name, "escape quote stripped")

	_, ok = c.Entity("drafts")
	assert.False(t, ok, "open records are not entities")
}

func TestRegister_EntitiesOnlyFromEntityFile(t *testing.T) {
	c := New(DefaultOptions())
	c.Register(mainDoc(t))

	_, ok := c.Entity("locals")
	assert.False(t, ok)
	assert.Empty(t, c.Entities())
}

func TestRegister_ClientVariables(t *testing.T) {
	c := New(DefaultOptions())
	// variables seen before the client type is known
	c.Register(mainDoc(t))
	assert.False(t, c.IsClientVariable("mcClient"))

	c.Register(entityDoc())
	assert.True(t, c.IsClientType("Client"))
	assert.True(t, c.IsClientVariable("mcClient"))
	assert.False(t, c.IsClientVariable("value"))
	assert.False(t, c.IsClientVariable("unknown"))

	// last type segment "Client" matches regardless of the module prefix
	assert.True(t, c.IsClientVariable("httpClient"))
	assert.Equal(t, []string{"httpClient", "mcClient"}, c.ClientVariables())

	typ, ok := c.VariableType("products")
	require.True(t, ok)
	assert.Equal(t, "Product[]", typ)
	assert.True(t, c.Ready())
}

func TestRegister_Idempotent(t *testing.T) {
	c := New(DefaultOptions())
	c.Register(entityDoc())
	c.Register(mainDoc(t))

	entities := c.Entities()
	clients := c.ClientTypes()
	vars := c.ClientVariables()

	c.Register(entityDoc())
	c.Register(mainDoc(t))
	c.Register(entityDoc())

	assert.Equal(t, entities, c.Entities())
	assert.Equal(t, clients, c.ClientTypes())
	assert.Equal(t, vars, c.ClientVariables())
}

func TestRegister_CustomOptions(t *testing.T) {
	c := New(Options{EntityFile: "model.bal", ClientMarker: "*db:Client;"})
	c.Register(&syntax.Document{Name: "model.bal", Members: []syntax.Member{
		&syntax.TypeDef{Name: "Item", Closed: true},
		&syntax.ClassDef{Name: "Store", Members: []string{"*db:Client;"}},
	}})

	_, ok := c.Entity("items")
	assert.True(t, ok)
	assert.Equal(t, []string{"Store"}, c.ClientTypes())
}

func TestResourceName(t *testing.T) {
	tests := map[string]string{
		"Product":  "products",
		"Person":   "people",
		"Category": "categories",
		"'Order":   "orders",
		"Employee": "employees",
	}
	for in, want := range tests {
		assert.Equal(t, want, ResourceName(in), in)
	}
}

func TestCatalog_NotReady(t *testing.T) {
	c := New(Options{})
	assert.False(t, c.Ready())
	c.Register(mainDoc(t))
	assert.False(t, c.Ready())
}
