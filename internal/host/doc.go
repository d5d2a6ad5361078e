// Package host assembles the load pipeline: discover mod packages,
// resolve their load order, adapt and activate each mod, then serve the
// console until shutdown. The pipeline runs strictly sequentially on one
// goroutine during startup so load-order bugs stay reproducible.
package host
