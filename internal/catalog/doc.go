// Package catalog persists catalog entries in a flat, append-only text file.
//
// Each record is one line of the form "id,name\n". Reads always go back to
// the file, so appends made by other requests (or other processes) become
// visible on the next read. Writes open the file in append mode and emit each
// record with a single write call, which keeps concurrent records from
// interleaving. Lookups are a linear scan; duplicate ids are allowed and the
// first one in file order wins.
package catalog
