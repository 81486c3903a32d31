// Package insight houses blockchain connectivity utilities used to resolve
// transactions into structured data. It wraps RPC clients for EVM compatible
// networks such as Ethereum, Base, and Polygon, and knows how to map chain
// names to block explorer links for published threads.
package insight
