// Package probes builds health checkers from declarative probe
// configuration.
//
// Built-in types are memory, disk, http, dns, tcp, sql and postgres. Each
// builder validates its params and returns a health.Checker; checkers that
// hold connections also implement io.Closer so the aggregator can release
// them on replacement or shutdown.
package probes
