//go:build linux

package liburing

// Submit flushes the submission queue and enters the kernel, waiting for
// none of the resulting completions. It returns the number of SQEs the
// kernel consumed.
func (ring *Ring) Submit() (uint, error) {
	return ring.SubmitAndWait(0)
}

// SubmitAndWait flushes the submission queue and enters the kernel, blocking
// until at least waitNr completions are ready.
func (ring *Ring) SubmitAndWait(waitNr uint32) (uint, error) {
	submitted := ring.flushSQ()
	flags := uint32(0)
	if ring.kind&regRing != 0 {
		flags |= IORING_ENTER_REGISTERED_RING
	}
	if !ring.sqRingNeedsEnter(submitted, &flags) && waitNr == 0 {
		return uint(submitted), nil
	}
	if waitNr > 0 || ring.flags&IORING_SETUP_IOPOLL != 0 {
		flags |= IORING_ENTER_GETEVENTS
	}
	return ring.Enter(submitted, waitNr, flags, nil)
}
