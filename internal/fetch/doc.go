// Package fetch turns pending catalog tracks into audio clips.
//
// A Worker handles exactly one track: resolve the search query to a
// video, compute the middle clip window from the reported duration,
// download and extract the audio, then verify the clip landed. Failures
// never leave partial files behind.
//
// The Orchestrator fans pending tracks out across a bounded worker
// pool, collects outcomes in completion order, and writes the failure
// manifest consumed by later retry runs.
package fetch
