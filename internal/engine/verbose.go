package engine

// VerboseMode enables tracing to stderr throughout the compiler:
// emitted instructions with their bytes, lowering decisions and stage timings.
var VerboseMode bool
