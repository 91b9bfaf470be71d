// Package announce speaks confirmed denominations without repeating itself.
//
// The Deduplicator suppresses a repeat of the active denomination until its
// cool-down elapses and cancels any in-flight utterance when a different
// denomination is confirmed, so at most one announcement is audible at a
// time. Speakers are pluggable; CommandSpeaker shells out to espeak-ng or a
// compatible binary and is killed when its context is cancelled.
package announce
