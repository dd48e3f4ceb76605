package bytebufferpool

import "sync"

var pool = sync.Pool{
	New: func() interface{} { return newBuffer() },
}

// Get returns a reset Buffer from the shared pool.
func Get() Buffer {
	return pool.Get().(*buffer)
}

// Put returns buf to the shared pool after resetting it. Passing a Buffer
// not obtained from Get is a programmer error and is ignored.
func Put(buf Buffer) {
	b, ok := buf.(*buffer)
	if !ok {
		return
	}
	b.Reset()
	pool.Put(b)
}
