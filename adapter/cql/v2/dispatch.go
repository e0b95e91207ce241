package v2

import (
	"context"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/arloliu/cqlguard"
	"github.com/arloliu/cqlguard/adapter/cql/internal/ddl"
	"github.com/arloliu/cqlguard/types"
)

// noRetry leaves every retry decision to cqlguard.
var noRetry = &gocql.SimpleRetryPolicy{NumRetries: 0}

// pinned builds a query that runs once on host.
func pinned(sess *gocql.Session, host types.Host, stmt string, values ...any) *gocql.Query {
	return sess.Query(stmt, values...).
		RetryPolicy(noRetry).
		SetHostID(host.ID.String())
}

// Send executes one attempt of req on host.
//
// Parameters:
//   - ctx: Bounds the attempt
//   - host: The node to send to
//   - req: The statement and its resolved options
//
// Returns:
//   - *types.Result: Rows, paging state and warnings
//   - error: A classified error, or ErrNotConnected
func (s *Session) Send(ctx context.Context, host types.Host, req *cqlguard.Request) (*types.Result, error) {
	sess, err := s.current()
	if err != nil {
		return nil, &types.RequestError{Kind: types.KindConnection, Cause: err}
	}

	opts := req.Options
	q := pinned(sess, host, req.Query, req.Params...).
		Consistency(gocql.Consistency(opts.Consistency)).
		Idempotent(opts.IsIdempotent)
	// serial consistency is a plain Consistency in this driver
	if opts.SerialConsistency.IsSerial() {
		q = q.SerialConsistency(gocql.Consistency(opts.SerialConsistency))
	}
	if opts.PageSize > 0 {
		q = q.PageSize(opts.PageSize)
	}
	if len(opts.PageState) > 0 {
		q = q.PageState(opts.PageState)
	}

	iter := q.IterContext(ctx)
	rows, err := iter.SliceMap()
	result := &types.Result{Rows: rows, Warnings: iter.Warnings()}
	if state := iter.PageState(); len(state) > 0 {
		result.PageState = state
	}
	if closeErr := iter.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, Classify(err)
	}

	keyspace := opts.Keyspace
	if keyspace == "" {
		keyspace = s.cluster.Keyspace
	}
	if change, ok := ddl.SchemaChangeOf(req.Query, keyspace); ok {
		result.SchemaChange = &change
	}

	return result, nil
}
