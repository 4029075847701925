package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistsql/internal/compiler"
)

func TestExplain_Text(t *testing.T) {
	out, err := execute(t, "--format", "text", "explain", storeDir)
	require.NoError(t, err)

	assert.Contains(t, out, "main.bal:4:1  accepted  Product")
	assert.Contains(t, out, "    whereClause = `Product.id = ${value} `")
	assert.Contains(t, out, "    orderByClause = `Product.name DESC `")
	assert.Contains(t, out, "    sql: SELECT * FROM Product WHERE Product.id = ?")
	assert.Contains(t, out, "    parameters: [value]")
	assert.Contains(t, out, "main.bal:6:1  accepted  Employee")
	assert.Contains(t, out, "ignored")
	assert.Contains(t, out, "main_test.bal:3:1  accepted  Product")
}

func TestExplain_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "explain", storeDir)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []ExplainEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	var statuses []string
	for _, e := range resp.Data {
		statuses = append(statuses, e.Status)
	}
	assert.Equal(t, []string{StatusAccepted, StatusAccepted, StatusIgnored, StatusAccepted}, statuses)

	employees := resp.Data[1]
	assert.Equal(t, "Employee", employees.Table)
	assert.Empty(t, employees.Parameters)
	require.Len(t, employees.Clauses, 2)
	assert.Equal(t, "whereClause", employees.Clauses[0].Name)
	assert.Equal(t, "Employee.age > 30", employees.Clauses[0].Template)
	assert.Equal(t, "limitClause", employees.Clauses[1].Name)
	assert.Equal(t, " 5", employees.Clauses[1].Template)
}

func TestExplain_Rejected(t *testing.T) {
	out, err := execute(t, "--format", "text", "explain", misuseDir)
	// Explain reports rejected queries without failing.
	require.NoError(t, err)

	assert.Contains(t, out, "main.bal:3:1  rejected")
	assert.Contains(t, out, "ERROR ["+compiler.CodeTargetTypeOnly+"]")
	assert.Contains(t, out, "main.bal:5:1  accepted  Product")
}

func TestExplainPipeline_Skipped(t *testing.T) {
	entry := explainPipeline(docID, pipeline(t, "from var e in mcClient->/products(Product) select e"),
		compiler.Outcome{Skip: compiler.SkipNoPushdown})
	assert.Equal(t, StatusSkipped, entry.Status)
	assert.Equal(t, string(compiler.SkipNoPushdown), entry.Reason)
	assert.Empty(t, entry.Clauses)
}

func TestExplainPipeline_Abandoned(t *testing.T) {
	p := pipeline(t, "from var e in mcClient->/products(Product) where e.id + 1 == 2 select e")
	entry := explainPipeline(docID, p, compiler.Outcome{Query: &compiler.Query{Pipeline: p, Table: "Product", Validated: true}})
	assert.Equal(t, StatusAbandoned, entry.Status)
	assert.Equal(t, "Product", entry.Table)
	assert.NotEmpty(t, entry.Reason)
	assert.Empty(t, entry.SQL)
}
