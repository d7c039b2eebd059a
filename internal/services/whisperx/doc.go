// Package whisperx transcribes audio files with WhisperX run through uvx.
//
// Service.Transcribe converts the input to a mono 16 kHz WAV with ffmpeg,
// runs WhisperX on it and joins the JSON segments into plain text. The model,
// device and VAD method come from [transcription] in config.toml.
package whisperx
