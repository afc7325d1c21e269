// Package pngtext extracts keyword/value text from the tEXt and zTXt chunks
// of a PNG file.
//
// The pipeline has three stages:
//
//   - Scanner walks the chunk stream of an in-memory file and classifies
//     each chunk header into a Kind.
//   - DecodeText turns the payload of a text chunk into a keyword and a
//     value. zTXt payloads are inflated first.
//   - Collect drives both and accumulates the pairs into a metadata.Map.
//
// A bad signature or a chunk that runs past the end of the buffer fails the
// whole file. A text chunk that cannot be decoded is skipped and the scan
// continues with the next chunk. CRCs are never checked.
package pngtext
