// Package audio is the playback half of the screen-reader engine. It holds
// the discrete volume and rate scales, the process-wide output graph (one
// hardware pipeline and one gain stage), the single-clip player and the
// sequential queue player that plays narration clips in speech order.
package audio
