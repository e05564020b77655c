// Package backend provides generation backend implementations.
//
// The factory builds the backend roster (profiles plus generators) from
// provider configuration. Currently supports:
//   - Anthropic Claude
package backend
