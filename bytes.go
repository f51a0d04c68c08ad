package bufdb

// Int64Bytes returns v as 8 little-endian bytes, the layout PutInt64 writes.
func Int64Bytes(v int64) []byte {
	b := make([]byte, Int64Size)
	putUint64LE(b, uint64(v))
	return b
}

// Int32Bytes returns v as 4 little-endian bytes.
func Int32Bytes(v int32) []byte {
	b := make([]byte, Int32Size)
	putUint32LE(b, uint32(v))
	return b
}
