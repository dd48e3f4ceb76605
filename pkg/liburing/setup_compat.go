//go:build linux

package liburing

// IORING_SETUP_* mirrors the Setup* bit constants declared in flags.go under
// their raw io_uring.h spelling, since params.go and ring_sq.go reference the
// kernel header names directly.
const (
	IORING_SETUP_IOPOLL           = SetupIOPoll
	IORING_SETUP_SQPOLL           = SetupSQPoll
	IORING_SETUP_SQ_AFF           = SetupSQAff
	IORING_SETUP_CQSIZE           = SetupCQSize
	IORING_SETUP_CLAMP            = SetupClamp
	IORING_SETUP_ATTACH_WQ        = SetupAttachWQ
	IORING_SETUP_R_DISABLED       = SetupRDisabled
	IORING_SETUP_SUBMIT_ALL       = SetupSubmitAll
	IORING_SETUP_COOP_TASKRUN     = SetupCoopTaskRun
	IORING_SETUP_TASKRUN_FLAG     = SetupTaskRunFlag
	IORING_SETUP_SQE128           = SetupSQE128
	IORING_SETUP_CQE32            = SetupCQE32
	IORING_SETUP_SINGLE_ISSUER    = SetupSingleIssuer
	IORING_SETUP_DEFER_TASKRUN    = SetupDeferTaskRun
	IORING_SETUP_NO_MMAP          = SetupNoMmap
	IORING_SETUP_REGISTERED_FD_ONLY = SetupRegisteredFdOnly
	IORING_SETUP_NO_SQARRAY       = SetupNoSQArray
	IORING_SETUP_HYBRID_IOPOLL    = SetupHybridIOPoll
)

// IORING_FEAT_* are the feature bits the kernel reports back in
// io_uring_params.features, used to gate behavior ring_setup.go/ring_cq.go/
// ring_register.go already branch on.
const (
	IORING_FEAT_SINGLE_MMAP uint32 = 1 << iota
	IORING_FEAT_NODROP
	IORING_FEAT_SUBMIT_STABLE
	IORING_FEAT_RW_CUR_POS
	IORING_FEAT_CUR_PERSONALITY
	IORING_FEAT_FAST_POLL
	IORING_FEAT_POLL_32BITS
	IORING_FEAT_SQPOLL_NONFIXED
	IORING_FEAT_EXT_ARG
	IORING_FEAT_NATIVE_WORKERS
	IORING_FEAT_RSRC_TAGS
	IORING_FEAT_CQE_SKIP
	IORING_FEAT_LINKED_FILE
	IORING_FEAT_REG_REG_RING
)

// FeatRegRegRing is ring.go's short name for IORING_FEAT_REG_REG_RING.
const FeatRegRegRing = IORING_FEAT_REG_REG_RING

// RegisterEnableRings is ring.go's short name for the register opcode used
// to enable a ring created with IORING_SETUP_R_DISABLED.
const RegisterEnableRings = IORING_REGISTER_ENABLE_RINGS

// Entries clamp, mirrored from io_uring.h. ring_setup.go's IORING_SETUP_CLAMP
// handling uses its own kernMaxEntries/kernMaxCQEntries, which hold the same
// values.
const (
	IORING_MAX_ENTRIES    uint32 = 32768
	IORING_MAX_CQ_ENTRIES        = IORING_MAX_ENTRIES * 2
)
