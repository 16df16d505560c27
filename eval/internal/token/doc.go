// Package token splits expression text into lexemes.
//
// Literal escapes are resolved here so that the parser sees final string
// and char contents. Numeric literals keep their source text, including
// radix prefix, underscores and type suffix; the evaluator interprets them.
//
// This package is internal to eval.
package token
