// Package mixer implements the routing-matrix control plane: the route and
// effect matrix backed by hardware controls, the output link table with
// cascading volume propagation, the observer hub, and the background watcher
// that folds hardware-side changes into the same notification stream.
//
// Matrix and LinkTable are not safe for concurrent use on their own; the
// Mixer facade serializes every mutation so command-path calls and watcher
// activity cannot race on a route.
package mixer
