// Package ddl recognizes schema-changing CQL statements.
package ddl

import (
	"strings"

	"github.com/arloliu/cqlguard/types"
)

var schemaVerbs = map[string]string{
	"CREATE": "CREATED",
	"ALTER":  "UPDATED",
	"DROP":   "DROPPED",
}

// SchemaChangeOf recognizes DDL statements.
//
// The gocql drivers consume SCHEMA_CHANGE results internally, so the change
// is derived from the statement text instead. Index and materialized view statements
// are reported as an update of their base table, the way the server
// reports them. keyspace is used for unqualified names.
func SchemaChangeOf(stmt, keyspace string) (types.SchemaChange, bool) {
	fields := strings.Fields(strings.TrimRight(strings.TrimSpace(stmt), ";"))
	if len(fields) < 3 {
		return types.SchemaChange{}, false
	}

	change, ok := schemaVerbs[strings.ToUpper(fields[0])]
	if !ok {
		return types.SchemaChange{}, false
	}

	target := strings.ToUpper(fields[1])
	rest := fields[2:]
	if target == "MATERIALIZED" && len(rest) > 0 && strings.EqualFold(rest[0], "VIEW") {
		target, rest = "VIEW", rest[1:]
	}
	if target == "CUSTOM" && len(rest) > 0 && strings.EqualFold(rest[0], "INDEX") {
		target, rest = "INDEX", rest[1:]
	}
	rest = skipIfExists(rest)
	if len(rest) == 0 {
		return types.SchemaChange{}, false
	}

	switch target {
	case "KEYSPACE", "SCHEMA":
		return types.SchemaChange{Change: change, Target: "KEYSPACE", Keyspace: unquote(rest[0])}, true
	case "TABLE", "COLUMNFAMILY", "VIEW":
		ks, name := qualify(rest[0], keyspace)
		return types.SchemaChange{Change: change, Target: "TABLE", Keyspace: ks, Name: name}, true
	case "TYPE", "FUNCTION", "AGGREGATE":
		ks, name := qualify(rest[0], keyspace)
		return types.SchemaChange{Change: change, Target: target, Keyspace: ks, Name: name}, true
	case "INDEX":
		return indexChange(rest, keyspace)
	default:
		return types.SchemaChange{}, false
	}
}

// indexChange reports an index statement as an update of the indexed table.
// DROP INDEX does not name the table, so only the keyspace is known.
func indexChange(rest []string, keyspace string) (types.SchemaChange, bool) {
	for i, f := range rest {
		if strings.EqualFold(f, "ON") && i+1 < len(rest) {
			table := rest[i+1]
			if p := strings.IndexByte(table, '('); p >= 0 {
				table = table[:p]
			}
			ks, name := qualify(table, keyspace)

			return types.SchemaChange{Change: "UPDATED", Target: "TABLE", Keyspace: ks, Name: name}, true
		}
	}

	ks, _ := qualify(rest[0], keyspace)
	if ks == "" {
		return types.SchemaChange{}, false
	}

	return types.SchemaChange{Change: "UPDATED", Target: "KEYSPACE", Keyspace: ks}, true
}

func skipIfExists(fields []string) []string {
	switch {
	case len(fields) >= 3 && strings.EqualFold(fields[0], "IF") &&
		strings.EqualFold(fields[1], "NOT") && strings.EqualFold(fields[2], "EXISTS"):
		return fields[3:]
	case len(fields) >= 2 && strings.EqualFold(fields[0], "IF") && strings.EqualFold(fields[1], "EXISTS"):
		return fields[2:]
	default:
		return fields
	}
}

// qualify splits "ks.name" and strips the argument list of functions.
func qualify(name, keyspace string) (string, string) {
	if p := strings.IndexByte(name, '('); p >= 0 {
		name = name[:p]
	}
	if ks, obj, ok := strings.Cut(name, "."); ok {
		return unquote(ks), unquote(obj)
	}

	return keyspace, unquote(name)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	return strings.ToLower(s)
}
