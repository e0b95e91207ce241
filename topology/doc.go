// Package topology provides cluster membership sources for cqlguard.
//
// Both implementations satisfy [cqlguard.HostProvider]: Hosts returns the
// members that are up, and Watch streams [types.HostEvent] values (added,
// removed, up, down) describing every later change.
//
// # NATS Topology
//
// [NATS] reads the cluster membership from a NATS KV bucket, so a discovery
// agent or an operator can publish it once for a whole fleet of clients:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	kv, _ := js.KeyValue(ctx, "cassandra-topology")
//
//	hosts, _ := topology.NewNATS(ctx, kv,
//	    topology.WithKey("prod.hosts"),  // custom key
//	)
//	defer hosts.Close()
//
//	client, _ := cqlguard.NewClient(control, hosts, pools, dispatcher, metadata)
//
// # Host List Format
//
// The NATS KV value is a JSON [HostList]:
//
//	{
//	    "hosts": [
//	        {"id": "0f6b7c1e-...", "address": "10.0.0.1:9042", "datacenter": "dc1", "rack": "r1"},
//	        {"id": "8a2d44b0-...", "address": "10.0.0.2:9042", "datacenter": "dc1", "rack": "r2"}
//	    ],
//	    "down": ["8a2d44b0-..."]
//	}
//
// Each PUT is compared with the previous value and turned into host events.
// Deleting the key empties the cluster. Values that fail to parse are
// ignored.
//
// # Local Topology
//
// [Local] provides an in-memory implementation for tests and static
// clusters:
//
//	local := topology.NewLocal(hosts...)
//	local.SetHostUp(hosts[1].ID, false)  // Simulate a node going down
//
//	// Later...
//	local.SetHostUp(hosts[1].ID, true)
package topology
