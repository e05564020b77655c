// Package domain defines the core types shared across docforge: processor
// descriptors, backend profiles, task lifecycle states, validation verdicts,
// fallback outcomes, run reports, structured events, and the error taxonomy.
//
// Everything here is plain data. Behavior lives in the application packages
// under internal/ and in the adapters under pkg/adapters.
package domain
