// Package rustbridge provides the runtime scaffolding for dynamically
// loaded native plugins that are callable from host languages over a
// stable C ABI: lifecycle state machine, request dispatch, the sync/async
// bridge, logging upcalls, memory ownership across the FFI boundary,
// concurrency limiting, and the .rbp bundle distribution format.
//
// The CLI driver, host-language bindings (JVM/FFM, .NET/P-Invoke,
// Python/ctypes), procedural macro codegen, and example plugins are
// external collaborators and not part of this module.
package rustbridge
