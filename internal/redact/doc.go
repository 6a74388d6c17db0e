// Package redact masks detected card numbers so they can be shown or logged
// without revealing the full number.
//
// Masking replaces every digit except the trailing ones with '*' and keeps
// separators, so "4111 1111 1111 1111" becomes "**** **** **** 1111".
//
// Path-based exclusion is also supported: files whose paths match configured
// glob patterns are skipped by the scanner entirely.
package redact
