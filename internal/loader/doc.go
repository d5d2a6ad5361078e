// Package loader adapts a mod's portable code module for the host platform.
//
// A mod ships its compiled unit as a portable module file (.pmod): a
// YAML-encoded intermediate representation of declared types and method
// bodies. Before activation the loader statically scans every instruction,
// rewriting platform-divergent type references to their portable
// equivalents and rejecting instruction patterns that would corrupt host
// state. The scan never executes anything. Modules found fully compatible
// are cached by content hash and not rescanned within the same run.
package loader
