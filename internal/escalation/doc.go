// Package escalation is the support-automation escalation engine: it turns
// classified support interactions into team-routed, SLA-tracked work items.
// It defines the Service (create/assign/update/resolve lifecycle), the Store
// interface (persistence), queue and SLA views, metrics aggregation,
// reporting, and the domain models.
package escalation
