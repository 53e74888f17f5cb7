// Package textutil provides filename and path-segment sanitization for safe
// filesystem use.
package textutil
