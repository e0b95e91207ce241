package v1

import (
	"context"

	"github.com/gocql/gocql"

	"github.com/arloliu/cqlguard"
	"github.com/arloliu/cqlguard/adapter/cql/internal/ddl"
	"github.com/arloliu/cqlguard/types"
)

// noRetry leaves every retry decision to cqlguard.
var noRetry = &gocql.SimpleRetryPolicy{NumRetries: 0}

// Send executes one attempt of req on host.
//
// The query is pinned to host with gocql's SetHostID and failures are
// translated with Classify. DDL statements are recognized from their text
// and reported in Result.SchemaChange.
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

	q := sess.Query(req.Query, req.Params...).
		WithContext(ctx).
		Consistency(gocql.Consistency(req.Options.Consistency)).
		Idempotent(req.Options.IsIdempotent).
		RetryPolicy(noRetry).
		SetHostID(host.ID.String())
	defer q.Release()

	if req.Options.SerialConsistency.IsSerial() {
		q = q.SerialConsistency(gocql.SerialConsistency(req.Options.SerialConsistency))
	}
	if req.Options.PageSize > 0 {
		q = q.PageSize(req.Options.PageSize)
	}
	if len(req.Options.PageState) > 0 {
		q = q.PageState(req.Options.PageState)
	}

	iter := q.Iter()
	rows, err := iter.SliceMap()
	pageState := iter.PageState()
	warnings := iter.Warnings()
	if closeErr := iter.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, Classify(err)
	}

	result := &types.Result{Rows: rows, Warnings: warnings}
	if len(pageState) > 0 {
		result.PageState = pageState
	}
	if change, ok := ddl.SchemaChangeOf(req.Query, s.keyspace(req.Options.Keyspace)); ok {
		result.SchemaChange = &change
	}

	return result, nil
}

func (s *Session) keyspace(requested string) string {
	if requested != "" {
		return requested
	}

	return s.cluster.Keyspace
}
