// Package worker is the interception layer in front of the origin. Every
// request becomes a FetchEvent that the Router sends to a request handler, a
// cache strategy, or a 404. The Lifecycle precaches assets and decides when
// the worker starts answering requests instead of passing them through.
package worker
