// Package dispatch turns file notifications into relocations.
//
// Each event passes through the same pipeline: the path must be a regular
// file, its base name must not be excluded, an optional settle delay lets a
// writer finish, then the category is resolved from the extension and the
// file is moved. Outcomes are optionally written to a Recorder.
//
// The settle delay honours cancellation. Once the delay has elapsed the
// remaining steps run to completion even if the caller's context is
// cancelled, so a shutdown never leaves a half-handled file.
package dispatch
