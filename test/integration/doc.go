// Package integration holds end-to-end tests of cqlguard against a real
// Cassandra node started with testcontainers.
//
// The tests need Docker. They are skipped under -short or when
// SKIP_INTEGRATION_TESTS is set.
package integration
