package whisperx

// convertArgs builds the ffmpeg arguments that turn the first audio stream of
// source into a mono 16kHz WAV suitable for WhisperX.
func convertArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}
