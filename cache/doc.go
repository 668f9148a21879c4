// Package cache provides short-lived caching of encoded health reports.
//
// Health endpoints are polled by load balancers and orchestrators, often by
// several at once. ReportCache serves a recent report from a Cache and
// collapses concurrent misses for the same endpoint and tag selection into
// a single evaluation. Policy keeps non-healthy reports for a shorter time
// than healthy ones so recovery and failure are both noticed quickly.
package cache
