// Package secret resolves credentials referenced from probe configuration.
//
// Config values may contain ${VAR} placeholders and secret references of the
// form "secretref:<provider>:<ref>", either as the whole value or inline:
//
//	dsn: secretref:file:/run/secrets/pg_dsn
//	header: Bearer secretref:env:UPSTREAM_TOKEN
//
// The "env" and "file" providers are registered in DefaultRegistry.
package secret
