// Package logtail reads the end of matdeck's log file for the console log
// view.
//
// # Reading
//
// Read keeps a ring buffer of maxLines strings and scans the file once, so
// memory stays bounded however large the file grows:
//
//	lines, err := logtail.Read(cfg.LogFile, 400)
//
// # Decoding
//
// The file is written by package logging as one zap JSON object per line.
// Parse pulls out the timestamp, level, message and caller and keeps every
// other key as a string in Fields. Lines that are not JSON (a panic trace,
// say) are kept verbatim so nothing disappears from the view.
package logtail
