//go:build linux

package liburing

// DefaultEntries is the submission queue depth New uses when the caller
// passes no WithEntries option.
const DefaultEntries uint32 = 256

// Options collects the parameters New uses to set up a ring.
type Options struct {
	Entries      uint32
	Flags        uint32
	SQThreadCPU  uint32
	SQThreadIdle uint32
	WQFd         uint32
	MemoryBuffer []byte
}

// Option configures Options when constructing a Ring via New.
type Option func(*Options) error

// WithEntries sets the submission queue depth.
func WithEntries(n uint32) Option {
	return func(o *Options) error {
		o.Entries = n
		return nil
	}
}

// WithFlags ORs additional IORING_SETUP_* flags into the ring setup.
func WithFlags(flags uint32) Option {
	return func(o *Options) error {
		o.Flags |= flags
		return nil
	}
}

// WithSQThreadCPU pins the SQPOLL kernel thread to a CPU (only meaningful
// together with WithFlags(SetupSQPoll | SetupSQAff)).
func WithSQThreadCPU(cpu uint32) Option {
	return func(o *Options) error {
		o.SQThreadCPU = cpu
		return nil
	}
}

// WithSQThreadIdle sets how long (in milliseconds) the SQPOLL kernel thread
// idles before it needs an explicit wakeup.
func WithSQThreadIdle(ms uint32) Option {
	return func(o *Options) error {
		o.SQThreadIdle = ms
		return nil
	}
}

// WithAttachWQ shares another ring's async worker pool, per SetupAttachWQ.
func WithAttachWQ(wqFd uint32) Option {
	return func(o *Options) error {
		o.WQFd = wqFd
		o.Flags |= SetupAttachWQ
		return nil
	}
}

// WithMemoryBuffer supplies caller-allocated memory for the SQ/CQ rings and
// SQEs (SetupNoMmap), instead of letting the kernel mmap it.
func WithMemoryBuffer(buf []byte) Option {
	return func(o *Options) error {
		o.MemoryBuffer = buf
		return nil
	}
}
