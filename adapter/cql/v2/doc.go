// Package v2 connects cqlguard to Cassandra through the Apache Cassandra Go
// driver (github.com/apache/cassandra-gocql-driver/v2).
//
// It mirrors package v1 for applications that moved to the Apache driver.
// A single [Session] is the control connection, host provider, pool
// provider, dispatcher and metadata provider of a cqlguard.Client.
//
// # Usage
//
//	import (
//	    gocql "github.com/apache/cassandra-gocql-driver/v2"
//	    "github.com/arloliu/cqlguard/adapter/cql/v2"
//	)
//
//	cluster := gocql.NewCluster("10.0.0.1", "10.0.0.2")
//	cluster.Keyspace = "my_keyspace"
//
//	session, err := v2.NewSession(cluster, v2.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := cqlguard.NewClient(session, session, session, session, session)
//
// # Differences from v1
//
//   - Queries use the driver's context-aware calls; there is no WithContext
//     and no query pooling to release
//   - Serial consistency is passed as a plain gocql.Consistency
//   - [Session.Unwrap] exposes the driver session after Connect
//
// Driver errors are translated by [Classify], with the same categories as
// v1. Hosts are read from system.local and system.peers when connecting and
// then every PeerRefreshInterval.
package v2
