// Package alsa binds the control plane to real hardware through the amixer
// binary: card discovery from /proc/asound/cards, control enumeration and
// classification, volume and enum reads/writes, and a long-running
// `amixer events` listener that surfaces hardware-side changes as events.
package alsa
