// Package services hosts clients for the external tools mixdown drives
// (ffmpeg, demucs, faster-whisper) together with the shared error taxonomy
// and subprocess plumbing they rely on.
//
// Sentinel errors classify failures for the HTTP layer: validation problems
// surface before a job is created, external tool failures land in the job
// record, and not-found conditions map to structured 404 responses.
package services
