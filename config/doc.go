// Package config loads healthops configuration using spf13/viper.
//
// Configuration comes from a YAML file, overridden by HEALTHOPS_-prefixed
// environment variables (dots become underscores, so server.addr is
// HEALTHOPS_SERVER_ADDR). String values in credentials and probe params may
// contain ${VAR} placeholders and secretref:<provider>:<ref> references,
// which are resolved after decoding.
package config
