// Package domain defines the core types shared by the workflow editor core:
// ports, value selectors, graph documents, and the per-kind node
// configurations of the branching nodes.
//
// This package contains pure domain logic with ZERO external dependencies outside the
// Go standard library. All types in this package are:
//
// - Independent of infrastructure (no file watching, HTTP, policy engines, etc.)
// - Serialisable to the JSON document shape the editor persists
// - Testable in isolation without mocks
//
// Other packages (variablepool, portschema, upstream, branch, editor) build on
// these types. The dependency direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain
