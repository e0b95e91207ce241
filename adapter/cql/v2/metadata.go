package v2

import (
	"context"
	"fmt"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/google/uuid"

	"github.com/arloliu/cqlguard/types"
)

// CompareSchemaVersions reads schema_version from system.local and
// system.peers on host and reports whether every live node agrees.
//
// Peers that are not up are left out.
//
// Parameters:
//   - ctx: Bounds the two queries
//   - host: The node whose view of the ring is used
//
// Returns:
//   - bool: true if every live node reports the same version
//   - error: ErrNotConnected or a query failure
func (s *Session) CompareSchemaVersions(ctx context.Context, host types.Host) (bool, error) {
	sess, err := s.current()
	if err != nil {
		return false, err
	}

	var local gocql.UUID
	err = pinned(sess, host, `SELECT schema_version FROM system.local WHERE key='local'`).
		Consistency(gocql.One).
		ScanContext(ctx, &local)
	if err != nil {
		return false, fmt.Errorf("cqlguard/gocql/v2: read local schema version: %w", err)
	}

	versions := map[gocql.UUID]struct{}{local: {}}
	iter := pinned(sess, host, `SELECT host_id, schema_version FROM system.peers`).
		Consistency(gocql.One).
		IterContext(ctx)

	var id, version gocql.UUID
	for iter.Scan(&id, &version) {
		if id == (gocql.UUID{}) || version == (gocql.UUID{}) || !s.hosts.IsUp(uuid.UUID(id)) {
			continue
		}
		versions[version] = struct{}{}
	}
	if err := iter.Close(); err != nil {
		return false, fmt.Errorf("cqlguard/gocql/v2: read peer schema versions: %w", err)
	}

	return len(versions) == 1, nil
}

// RefreshSchema reloads the keyspace metadata touched by change. Dropped
// keyspaces and changes without a keyspace are skipped.
func (s *Session) RefreshSchema(ctx context.Context, change types.SchemaChange) error {
	if change.Keyspace == "" || (change.Target == "KEYSPACE" && change.Change == "DROPPED") {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sess, err := s.current()
	if err != nil {
		return err
	}
	if _, err := sess.KeyspaceMetadata(change.Keyspace); err != nil {
		return fmt.Errorf("cqlguard/gocql/v2: refresh keyspace %q: %w", change.Keyspace, err)
	}

	return nil
}
