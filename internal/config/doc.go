// Package config provides centralized configuration management for the
// ChainEcho runtime, combining a JSON configuration file with environment
// variable pointers for secrets such as API keys and access tokens.
package config
