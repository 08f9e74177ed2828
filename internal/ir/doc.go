// Package ir provides the record types shared by every txtag package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Documents are JSON-compatible maps; Normalize maps Go values onto the
//     JSON data model so both storage backends see identical dynamic types
//   - Record identity is deterministic: transactions hash their business
//     content, metadata hashes (metatype, name), groups hash their name
//   - All JSON field names use snake_case
package ir
