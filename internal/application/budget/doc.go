// Package budget estimates token demand and validates it against the
// active backend's context window.
//
// Estimation takes the maximum of the processor's declared cost and the
// measured size of its context slice at validation time. The validator is
// pure: no state, no side effects, independently unit-testable.
package budget
