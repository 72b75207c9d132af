// Package bwscfactories creates single, well-architected resources outside of a
// pattern: queues, VPCs, buckets and state machines with the same defaults the
// patterns apply.
package bwscfactories
