// Package language maps between the language spellings found on media
// tracks: ISO 639-1, both ISO 639-2 forms, IETF-style tags, and English
// names.
//
// The engine uses it to turn configured preferences into track selectors,
// and probe output uses it to label audio and subtitle tracks.
package language
