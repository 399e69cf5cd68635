// Package common provides shared plumbing for capability implementations:
// instrumentation of invocations and argument conversion between transports.
package common
