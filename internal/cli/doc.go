// Package cli implements the healthops command line.
//
// Commands:
//
//	healthops check    run one evaluation and exit with a status code
//	healthops serve    serve health endpoints over HTTP
//	healthops probes   list configured probes
//	healthops version  print build information
//
// Every command reads the same configuration file; see package config.
package cli
