// Package sanitizer normalizes free-form request input before validation and storage.
//
// All functions are idempotent and never fail: invalid input is reduced to an empty
// string rather than reported, so validators downstream decide what is required.
//
// Normalization includes:
//   - Strings: collapse whitespace, trim leading/trailing spaces
//   - Free text (rating comments, reasons): drop control characters, cap length in runes
//   - Time zones: trim, collapse repeated separators, reject anything that is not an IANA-style name
package sanitizer
