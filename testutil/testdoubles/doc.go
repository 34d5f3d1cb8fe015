// Package testdoubles provides spy implementations of the dispatch
// observability and policy interfaces, used by the package tests to assert
// on logging, metrics, and lifecycle policy interactions.
package testdoubles
