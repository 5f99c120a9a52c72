// Package aggregates defines the write boundaries of the workshop engine.
//
// Contracts here carry no persistence detail. Each write method is one atomic
// unit in which the listed invariants hold before and after.
package aggregates
