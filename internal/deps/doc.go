// Package deps verifies the external pieces ftumix needs before it touches
// hardware: the amixer binary and the ALSA nodes for the selected card.
//
// The checks run in two contexts:
//   - ftumixd refuses to start without amixer and warns when the card's
//     control node is not accessible.
//   - The CLI "ftumix deps" command renders the full status list for
//     operators debugging a setup.
package deps
