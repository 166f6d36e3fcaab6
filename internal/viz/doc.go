// Package viz provides terminal views for cloudmorph.
//
//   - [Canvas]: Braille dot canvas for skeleton and cloud previews
//   - [RunModel]: Bubble Tea progress view for a running script
//   - lipgloss styles and themes shared by the CLI
//
// # Key Bindings
//
//	q, Ctrl+C - cancel the run; nothing is saved
package viz
