/*
Package metrics provides Prometheus metrics collection and exposition for mailcore.

Metrics are grouped by the component that emits them: the transactional
writer (commit attempts, retries, latency), the document id allocator
(collisions, reclaimed reservations), the blob store (compression ratio,
operation latency, bytes transferred), the ACL engine (resolution latency,
effective refreshes) and the principal-revision notifier (revision bumps,
active subscribers). All metrics are registered against the default
Prometheus registry at package init and exposed through Handler for
scraping.

The package also carries a small component health registry (health.go)
used by long-running processes to report readiness of the store and blob
backends independently of Prometheus scraping.
*/
package metrics
