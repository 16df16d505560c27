// Package abi provides the low-level byte helpers used by the decoder.
//
// # Contents
//
//   - helpers.go: bounds-checked little-endian reads, sign extension,
//     overflow-checked arithmetic and scalar validation
//
// This package is internal to the decoder.
package abi
