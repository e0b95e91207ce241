// Package v1 connects cqlguard to Cassandra through gocql v1.x.
//
// A single [Session] implements every collaborator cqlguard.Client needs:
// the control connection, host discovery, per-host pools, the attempt
// dispatcher and schema metadata.
//
// # Installation
//
// Import this package along with gocql v1.x:
//
//	import (
//	    "github.com/gocql/gocql"
//	    "github.com/arloliu/cqlguard/adapter/cql/v1"
//	)
//
// # Usage
//
//	cluster := gocql.NewCluster("10.0.0.1", "10.0.0.2")
//	cluster.Keyspace = "my_keyspace"
//
//	session, err := v1.NewSession(cluster, v1.WithPeerRefreshInterval(time.Minute))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := cqlguard.NewClient(session, session, session, session, session,
//	    cqlguard.WithLoadBalancingPolicy(policy.NewDCAwareRoundRobin("dc1")),
//	)
//
// # Attempts
//
// Every attempt is pinned to the host picked by the client's query plan and
// runs with gocql's retries disabled. Driver errors are translated by
// [Classify] into the categories retry policies understand:
//
//   - *gocql.RequestErrUnavailable: types.UnavailableError
//   - *gocql.RequestErrReadTimeout: types.ReadTimeoutError
//   - *gocql.RequestErrWriteTimeout: types.WriteTimeoutError
//   - overloaded, bootstrapping, server and truncate errors, lost
//     connections and driver timeouts: types.RequestError
//
// # Topology
//
// Hosts are read from system.local and system.peers when connecting and
// then every PeerRefreshInterval. Nodes that appear or disappear are
// reported through Watch.
//
// # Thread Safety
//
// Session is safe for concurrent use, matching gocql's thread safety guarantees.
package v1
