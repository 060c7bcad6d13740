// Package platform detects what the host offers and presents it as a
// uniform capability surface.
//
// Detection never fails: an unknown distribution or a missing subsystem
// degrades to a no-op capability whose operations report
// CapabilityMissing, which the pipeline records as a warning and skips.
// The rest of the system holds PackageManager, FirewallBackend and
// MacLabeler interfaces and never branches on tool identity.
package platform
