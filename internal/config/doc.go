// Package config provides configuration loading, merging, and validation
// facilities for the client runtime and the reference backend.
//
// Configuration is assembled from multiple sources. A field takes the value of
// the first source that sets it:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON or YAML config file
//
// The main entry points are [GetServerConfig] and [GetClientConfig]; both
// derive a validated view from [GetStructuredConfig].
package config
