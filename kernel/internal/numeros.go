package internal

// Números de syscall del ABI o32 de Linux/MIPS.
const (
	NrExit          = 4001
	NrFork          = 4002
	NrRead          = 4003
	NrWrite         = 4004
	NrOpen          = 4005
	NrClose         = 4006
	NrUnlink        = 4010
	NrExecve        = 4011
	NrChdir         = 4012
	NrLseek         = 4019
	NrGetpid        = 4020
	NrGetuid        = 4024
	NrAccess        = 4033
	NrKill          = 4037
	NrMkdir         = 4039
	NrDup           = 4041
	NrPipe          = 4042
	NrBrk           = 4045
	NrGetgid        = 4047
	NrGeteuid       = 4049
	NrGetegid       = 4050
	NrIoctl         = 4054
	NrSetpgid       = 4057
	NrDup2          = 4063
	NrGetppid       = 4064
	NrSymlink       = 4083
	NrReadlink      = 4085
	NrMunmap        = 4091
	NrWait4         = 4114
	NrUname         = 4122
	NrGetpgid       = 4132
	NrLlseek        = 4140
	NrWritev        = 4146
	NrNanosleep     = 4166
	NrPoll          = 4188
	NrRtSigaction   = 4194
	NrRtSigprocmask = 4195
	NrGetcwd        = 4203
	NrMmap2         = 4210
	NrStat64        = 4213
	NrLstat64       = 4214
	NrFstat64       = 4215
	NrGetdents64    = 4219
	NrFcntl64       = 4220
	NrGettid        = 4222
	NrSendfile64    = 4237
	NrExitGroup     = 4246
	NrSetTidAddress = 4252
	NrClockGettime  = 4263
	NrSetThreadArea = 4283
	NrPrlimit64     = 4338
)

// ioctl
const (
	TCGETS     = 0x540D
	TIOCGWINSZ = 0x40087468
	TIOCSPGRP  = 0x80047476
	TIOCGPGRP  = 0x40047477
)

// fcntl
const (
	FDupfd        = 0
	FGetfd        = 1
	FSetfd        = 2
	FGetfl        = 3
	FSetfl        = 4
	FDupfdCloexec = 1030

	FdCloexec = 1
)

const (
	mapFixed     = 0x10
	mapAnonymous = 0x800

	wnohang = 1

	seekSet = 0
	seekCur = 1
	seekEnd = 2

	pathMax = 4096

	senalKill = 9
	senalTerm = 15
	// señal con la que se reporta una máquina detenida por una instrucción o syscall no soportada
	senalFalla = 4
)
