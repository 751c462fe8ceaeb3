package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSet(t *testing.T) {
	set := NewTableSet()
	set.Add("main", "orders")
	set.Add("main", "customers")
	set.Add("main", "orders")

	set.AddColumn("orders", ReflectedColumn{Name: "id"})
	set.AddColumn("orders", ReflectedColumn{Name: "customer_id"})
	set.AddColumn("orders", ReflectedColumn{Name: "qty"})
	set.AddColumn("ghost", ReflectedColumn{Name: "ignored"})

	set.AddConstraint(ConstraintRow{Table: "orders", Name: "pk", Kind: ConstraintPrimaryKey, Column: "id"})
	set.AddConstraint(ConstraintRow{Table: "orders", Name: "fk1", Kind: ConstraintForeignKey, Column: "customer_id",
		RefTable: "customers", RefColumn: "id", OnDelete: "CASCADE"})
	set.AddConstraint(ConstraintRow{Table: "orders", Name: "qty_chk", Kind: ConstraintCheck, Column: "qty",
		Definition: "CHECK (qty > 0)"})
	set.AddConstraint(ConstraintRow{Table: "orders", Name: "multi_chk", Kind: ConstraintCheck, Column: "qty",
		Definition: "CHECK (qty > id)"})
	set.AddConstraint(ConstraintRow{Table: "orders", Name: "multi_chk", Kind: ConstraintCheck, Column: "id",
		Definition: "CHECK (qty > id)"})
	set.AddConstraint(ConstraintRow{Table: "customers", Name: "uq", Kind: ConstraintUnique, Column: "a"})
	set.AddConstraint(ConstraintRow{Table: "customers", Name: "uq", Kind: ConstraintUnique, Column: "b"})

	set.AddIndexColumn("orders", "ix_cust", false, "customer_id")
	set.MarkIndexesKnown()

	tables := set.Tables()
	require.Len(t, tables, 2)

	orders := tables[0]
	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, []string{"id"}, orders.PrimaryKey)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "customers", orders.ForeignKeys[0].RefTable)
	assert.Equal(t, "CASCADE", orders.ForeignKeys[0].OnDelete)
	assert.Equal(t, []string{"CHECK (qty > 0)"}, orders.Columns[2].Constraints, "only single-column checks attach")
	assert.Empty(t, orders.Columns[0].Constraints)
	assert.True(t, orders.IndexesKnown)
	assert.Equal(t, []ReflectedIndex{{Name: "ix_cust", Columns: []string{"customer_id"}}}, orders.Indexes)

	customers := tables[1]
	assert.Equal(t, [][]string{{"a", "b"}}, customers.UniqueConstraints)

	assert.Equal(t, tables, set.Tables(), "Tables is repeatable")
}
