package bind_group_provider

// BufferWrite describes a single queue write into the buffer at Binding of Provider.
// Offset is in bytes from the start of the buffer.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
