// Package config loads, validates, and persists the publisher settings:
// which repository to scan, which repository receives the index, API
// endpoints, template locations, and scan behavior. Credentials are not
// part of the configuration file; the CLI reads the token from the
// environment and passes it to services explicitly.
package config
