// Package config defines the configuration for a csnode.
//
// Regardless of how a node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object
// defined in this package to store and forward configuration options. On
// top of these options, a node relies on a data directory, defined by
// Config.DataDir, where it expects to find:
//
//	priv_key // a plain text file containing the raw private key (cf. csnode keygen).
//	cert.pem // (optional) an x509 certificate for the WebRTC signaling server.
package config
