// Package sar implements the sar archive format: a single self-describing
// byte stream produced from a filesystem subtree and capable of
// reconstructing it. Writer serializes a tree into the format; Reader
// deserializes a stream back onto disk, or walks it without touching the
// filesystem. See internal/sarfmt for the wire layout, internal/sario for
// the CRC-gated streaming primitives, internal/hardlink for the writer's
// inode reconciliation table, and internal/compress for the external
// compressor pipe.
package sar
