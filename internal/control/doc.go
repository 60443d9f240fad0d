// Package control defines the hardware vocabulary shared by the mixer core
// and its backends: domains, route identities, control descriptors, the
// backend contract, and the snapshot state exchanged with the preset codec.
package control
