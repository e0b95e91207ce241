package ddl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/cqlguard/types"
)

func TestSchemaChangeOf(t *testing.T) {
	tests := []struct {
		stmt string
		want types.SchemaChange
	}{
		{
			stmt: "CREATE KEYSPACE IF NOT EXISTS shop WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}",
			want: types.SchemaChange{Change: "CREATED", Target: "KEYSPACE", Keyspace: "shop"},
		},
		{
			stmt: "drop keyspace shop;",
			want: types.SchemaChange{Change: "DROPPED", Target: "KEYSPACE", Keyspace: "shop"},
		},
		{
			stmt: "CREATE TABLE shop.orders (id uuid PRIMARY KEY, total int)",
			want: types.SchemaChange{Change: "CREATED", Target: "TABLE", Keyspace: "shop", Name: "orders"},
		},
		{
			stmt: "CREATE TABLE orders(id uuid PRIMARY KEY)",
			want: types.SchemaChange{Change: "CREATED", Target: "TABLE", Keyspace: "default_ks", Name: "orders"},
		},
		{
			stmt: `ALTER TABLE "Shop"."Orders" ADD note text`,
			want: types.SchemaChange{Change: "UPDATED", Target: "TABLE", Keyspace: "Shop", Name: "Orders"},
		},
		{
			stmt: "DROP TABLE IF EXISTS shop.orders",
			want: types.SchemaChange{Change: "DROPPED", Target: "TABLE", Keyspace: "shop", Name: "orders"},
		},
		{
			stmt: "CREATE MATERIALIZED VIEW shop.by_total AS SELECT * FROM shop.orders",
			want: types.SchemaChange{Change: "CREATED", Target: "TABLE", Keyspace: "shop", Name: "by_total"},
		},
		{
			stmt: "CREATE TYPE shop.address (street text)",
			want: types.SchemaChange{Change: "CREATED", Target: "TYPE", Keyspace: "shop", Name: "address"},
		},
		{
			stmt: "CREATE FUNCTION shop.double(input int) RETURNS NULL ON NULL INPUT RETURNS int LANGUAGE java AS 'return input * 2;'",
			want: types.SchemaChange{Change: "CREATED", Target: "FUNCTION", Keyspace: "shop", Name: "double"},
		},
		{
			stmt: "CREATE INDEX IF NOT EXISTS orders_total ON shop.orders (total)",
			want: types.SchemaChange{Change: "UPDATED", Target: "TABLE", Keyspace: "shop", Name: "orders"},
		},
		{
			stmt: "CREATE CUSTOM INDEX ON shop.orders(total) USING 'StorageAttachedIndex'",
			want: types.SchemaChange{Change: "UPDATED", Target: "TABLE", Keyspace: "shop", Name: "orders"},
		},
		{
			stmt: "DROP INDEX shop.orders_total",
			want: types.SchemaChange{Change: "UPDATED", Target: "KEYSPACE", Keyspace: "shop"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.stmt, func(t *testing.T) {
			got, ok := SchemaChangeOf(tc.stmt, "default_ks")
			require.True(t, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSchemaChangeOfIgnoresOtherStatements(t *testing.T) {
	for _, stmt := range []string{
		"SELECT * FROM shop.orders",
		"INSERT INTO shop.orders (id) VALUES (?)",
		"UPDATE shop.orders SET total = 1 WHERE id = ?",
		"CREATE ROLE admin",
		"DROP",
		"",
		"DROP INDEX orders_total",
	} {
		_, ok := SchemaChangeOf(stmt, "")
		require.False(t, ok, stmt)
	}
}
