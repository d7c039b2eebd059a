// Package language normalises transcription language hints to the ISO 639-1
// codes WhisperX expects.
package language
