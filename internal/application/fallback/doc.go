// Package fallback implements the degradation chain applied when a task's
// content exceeds the active backend's context budget.
//
// Strategies run in a fixed priority order:
//  1. backend switch  - rebind to a larger-window backend, no content loss
//  2. prioritization  - drop sections tagged low priority
//  3. summarization   - condense large sections, keeping titles and key terms
//  4. chunking        - keep the section subset most relevant to the
//     processor's category, preserving order
//
// A task is never silently truncated: the outcome always records the
// strategy used and the reduction percentage for the run report.
package fallback
