// Package ytdlp wraps the yt-dlp command line tool for track resolution
// and bounded clip downloads. Resolution runs a single-result search and
// parses the JSON metadata dump; downloads extract an audio section and
// transcode it through yt-dlp's ffmpeg postprocessor.
package ytdlp
