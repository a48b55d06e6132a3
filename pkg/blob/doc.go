/*
Package blob implements the compressed blob store: a content-addressed
Store facade over a pluggable Backend (FSBackend for a local filesystem,
StoreBackend for the same backing store.Backend the rest of mailcore
uses) and a pluggable Algo (None, Lz4).

Compression framing is self-describing: PutBlob appends a trailing
marker byte identifying the algorithm used, and GetBlob reads that marker
back rather than trusting the Store's currently configured Algo. A blob
written before compression existed, or under a different Algo, still
decodes correctly — bytes with no recognized marker are returned as-is.
*/
package blob
