// Package mediaengine drives a media file from ingestion to a finished
// transcription and manages where its files physically live.
//
// The engine combines a content-addressed duplicate gate, a prioritized
// capacity-aware placement over configured storage roots, an asynchronous
// extraction/transcription pipeline with per-project serialization, and a
// migration engine that relocates project files between roots with
// copy-verify-delete semantics.
//
// External work (ffmpeg, transcription, translation, summarization) is
// reached through small collaborator interfaces; the engine itself never
// blocks inside a status transition.
package mediaengine
