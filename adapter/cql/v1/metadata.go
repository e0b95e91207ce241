package v1

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/arloliu/cqlguard/types"
)

// CompareSchemaVersions reads schema_version from system.local and
// system.peers on host and reports whether they all match.
//
// Peers that are not currently known as up are left out, so a dead node
// cannot hold agreement back.
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
	q := sess.Query(`SELECT schema_version FROM system.local WHERE key='local'`).
		WithContext(ctx).Consistency(gocql.One).RetryPolicy(noRetry).SetHostID(host.ID.String())
	defer q.Release()
	if err := q.Scan(&local); err != nil {
		return false, fmt.Errorf("cqlguard/gocql: read local schema version: %w", err)
	}

	versions := map[gocql.UUID]struct{}{local: {}}

	iter := sess.Query(`SELECT host_id, schema_version FROM system.peers`).
		WithContext(ctx).Consistency(gocql.One).RetryPolicy(noRetry).SetHostID(host.ID.String()).Iter()

	var id, version gocql.UUID
	for iter.Scan(&id, &version) {
		if id == (gocql.UUID{}) || version == (gocql.UUID{}) || !s.hosts.IsUp(uuid.UUID(id)) {
			continue
		}
		versions[version] = struct{}{}
	}
	if err := iter.Close(); err != nil {
		return false, fmt.Errorf("cqlguard/gocql: read peer schema versions: %w", err)
	}

	return len(versions) == 1, nil
}

// RefreshSchema reloads the keyspace metadata touched by change.
//
// Dropped keyspaces have nothing to reload.
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
		return fmt.Errorf("cqlguard/gocql: refresh keyspace %q: %w", change.Keyspace, err)
	}

	return nil
}
