// Package actions turns user intents into service calls and cache updates.
//
// Each operation follows the same order: call the service, normalize the
// response, then apply it to the state.Store with a synchronous mutation. A
// failed call never touches the cache; the failure is logged and surfaced to
// the Notifier with the server's message passed through verbatim.
//
// Batch operations attempt every id through a bounded errgroup pool and
// report a BatchResult. Uploads are validated up front so a bad path is
// rejected before any bytes leave the machine.
package actions
