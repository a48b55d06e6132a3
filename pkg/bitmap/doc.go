/*
Package bitmap implements the dense, fixed-block bitmaps stored under the
bitmap subspace. Each Block covers BitsPerBlock consecutive document ids;
full bitmaps are assembled by the caller iterating over whichever blocks
are non-empty for a given key.
*/
package bitmap
