// Package audio downloads episode audio into the work directory.
//
// URLs whose path ends in a known audio or video extension are fetched with a
// plain HTTP GET. Anything else (episode pages, hosting platforms) is handed
// to yt-dlp, which extracts the best audio track as WAV. Every download gets
// its own temporary directory; callers release it with Download.Remove.
package audio
