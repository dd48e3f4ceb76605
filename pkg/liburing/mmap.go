//go:build linux

package liburing

import (
	"syscall"
	"unsafe"
)

// Kernel mmap offsets for the three regions an io_uring fd exposes, per
// io_uring.h: the SQ ring, the CQ ring, and the SQE array.
const (
	ioringOffSQRing uint64 = 0
	ioringOffCQRing uint64 = 0x8000000
	ioringOffSQEs   uint64 = 0x10000000
)

// mmapRing maps the SQ/CQ rings and the SQE array for a freshly set-up ring
// and wires sq/cq's pointer fields into the mapped memory. Mirrors
// liburing's io_uring_queue_init_params/io_uring_mmap.
func mmapRing(fd int, params *Params, sq *SubmissionQueue, cq *CompletionQueue) error {
	sq.ringSize = uint(uintptr(params.sqOff.array) + uintptr(params.sqEntries)*unsafe.Sizeof(uint32(0)))
	cq.ringSize = uint(uintptr(params.cqOff.cqes) + uintptr(params.cqEntries)*unsafe.Sizeof(CompletionQueueEvent{}))
	if params.flags&IORING_SETUP_CQE32 != 0 {
		cq.ringSize = uint(uintptr(params.cqOff.cqes) + uintptr(params.cqEntries)*2*unsafe.Sizeof(CompletionQueueEvent{}))
	}

	singleMmap := params.features&IORING_FEAT_SINGLE_MMAP != 0
	if singleMmap {
		if cq.ringSize > sq.ringSize {
			sq.ringSize = cq.ringSize
		}
		cq.ringSize = sq.ringSize
	}

	sqPtr, err := mmap(0, uintptr(sq.ringSize), syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED|syscall.MAP_POPULATE, fd, int64(ioringOffSQRing))
	if err != nil {
		return err
	}
	sq.ringPtr = sqPtr

	if singleMmap {
		cq.ringPtr = sq.ringPtr
	} else {
		cqPtr, cqErr := mmap(0, uintptr(cq.ringSize), syscall.PROT_READ|syscall.PROT_WRITE,
			syscall.MAP_SHARED|syscall.MAP_POPULATE, fd, int64(ioringOffCQRing))
		if cqErr != nil {
			_ = munmap(uintptr(sq.ringPtr), uintptr(sq.ringSize))
			return cqErr
		}
		cq.ringPtr = cqPtr
	}

	sqeSize := unsafe.Sizeof(SubmissionQueueEntry{})
	if params.flags&IORING_SETUP_SQE128 != 0 {
		sqeSize += 64
	}
	sqesPtr, err := mmap(0, sqeSize*uintptr(params.sqEntries), syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED|syscall.MAP_POPULATE, fd, int64(ioringOffSQEs))
	if err != nil {
		if !singleMmap {
			_ = munmap(uintptr(cq.ringPtr), uintptr(cq.ringSize))
		}
		_ = munmap(uintptr(sq.ringPtr), uintptr(sq.ringSize))
		return err
	}
	sq.sqes = (*SubmissionQueueEntry)(sqesPtr)

	wireRingPointers(params, sq, cq)
	return nil
}

// setupRingPointers wires sq/cq's pointer fields into caller-provided memory
// (IORING_SETUP_NO_MMAP), whose base addresses allocHuge already placed in
// params.sqOff.userAddr/cqOff.userAddr.
func setupRingPointers(params *Params, sq *SubmissionQueue, cq *CompletionQueue) {
	wireRingPointers(params, sq, cq)
}

func wireRingPointers(params *Params, sq *SubmissionQueue, cq *CompletionQueue) {
	sqBase := sq.ringPtr
	cqBase := cq.ringPtr

	sq.head = (*uint32)(unsafe.Add(sqBase, params.sqOff.head))
	sq.tail = (*uint32)(unsafe.Add(sqBase, params.sqOff.tail))
	sq.ringMask = (*uint32)(unsafe.Add(sqBase, params.sqOff.ringMask))
	sq.ringEntries = (*uint32)(unsafe.Add(sqBase, params.sqOff.ringEntries))
	sq.flags = (*uint32)(unsafe.Add(sqBase, params.sqOff.flags))
	sq.dropped = (*uint32)(unsafe.Add(sqBase, params.sqOff.dropped))
	if params.flags&IORING_SETUP_NO_SQARRAY == 0 {
		sq.array = (*uint32)(unsafe.Add(sqBase, params.sqOff.array))
	}

	cq.head = (*uint32)(unsafe.Add(cqBase, params.cqOff.head))
	cq.tail = (*uint32)(unsafe.Add(cqBase, params.cqOff.tail))
	cq.ringMask = (*uint32)(unsafe.Add(cqBase, params.cqOff.ringMask))
	cq.ringEntries = (*uint32)(unsafe.Add(cqBase, params.cqOff.ringEntries))
	cq.overflow = (*uint32)(unsafe.Add(cqBase, params.cqOff.overflow))
	cq.flags = (*uint32)(unsafe.Add(cqBase, params.cqOff.flags))
	cq.cqes = (*CompletionQueueEvent)(unsafe.Add(cqBase, params.cqOff.cqes))
}

// unmapRings tears down the mappings mmapRing established.
func unmapRings(sq *SubmissionQueue, cq *CompletionQueue) {
	if sq.ringPtr != nil {
		_ = munmap(uintptr(sq.ringPtr), uintptr(sq.ringSize))
	}
	if cq.ringPtr != nil && cq.ringPtr != sq.ringPtr {
		_ = munmap(uintptr(cq.ringPtr), uintptr(cq.ringSize))
	}
}
