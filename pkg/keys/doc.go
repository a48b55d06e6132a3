/*
Package keys implements the binary key codec used across every store
subspace.

Each key type serializes to a byte string made up of a one-byte subspace
tag followed by big-endian fixed-width integer fields, optionally
interleaved with a single variable-length segment. Because every integer
field is encoded big-endian, lexicographic byte-string order agrees with
the tuple order of the decoded fields — a cursor scanning a subspace in
byte order visits rows in the same order a caller would expect from
sorting the decoded tuples. Keys with a variable-length segment (IndexKey,
BitmapKey) place their trailing fixed-width field last and recover it by
slicing from the tail, since the preceding variable segment has no
length prefix.
*/
package keys
