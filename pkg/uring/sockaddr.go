package uring

import (
	"encoding/binary"
	"net"
	"syscall"
	"unsafe"
)

// sockaddrToRaw packs a TCP address into the raw sockaddr_in/sockaddr_in6
// layout io_uring's PrepareAccept/PrepareConnect expect, since the stdlib
// syscall.Sockaddr marshalling helpers Go itself uses for accept(2)/
// connect(2) are unexported.
func sockaddrToRaw(addr *net.TCPAddr) (*syscall.RawSockaddrAny, uint64) {
	raw := &syscall.RawSockaddrAny{}
	if ip4 := addr.IP.To4(); ip4 != nil && addr.IP.To16() != nil && len(ip4) == 4 {
		sa := (*syscall.RawSockaddrInet4)(unsafe.Pointer(raw))
		sa.Family = syscall.AF_INET
		putPort(&sa.Port, addr.Port)
		copy(sa.Addr[:], ip4)
		return raw, uint64(syscall.SizeofSockaddrInet4)
	}
	sa := (*syscall.RawSockaddrInet6)(unsafe.Pointer(raw))
	sa.Family = syscall.AF_INET6
	putPort(&sa.Port, addr.Port)
	copy(sa.Addr[:], addr.IP.To16())
	return raw, uint64(syscall.SizeofSockaddrInet6)
}

// rawToSockaddr reverses sockaddrToRaw for completions that hand back a
// peer address (one-shot accept).
func rawToSockaddr(raw *syscall.RawSockaddrAny) (net.Addr, error) {
	switch raw.Addr.Family {
	case syscall.AF_INET:
		sa := (*syscall.RawSockaddrInet4)(unsafe.Pointer(raw))
		ip := make(net.IP, 4)
		copy(ip, sa.Addr[:])
		return &net.TCPAddr{IP: ip, Port: getPort(&sa.Port)}, nil
	case syscall.AF_INET6:
		sa := (*syscall.RawSockaddrInet6)(unsafe.Pointer(raw))
		ip := make(net.IP, 16)
		copy(ip, sa.Addr[:])
		return &net.TCPAddr{IP: ip, Port: getPort(&sa.Port)}, nil
	default:
		return nil, syscall.EAFNOSUPPORT
	}
}

func putPort(field *uint16, port int) {
	b := (*[2]byte)(unsafe.Pointer(field))
	binary.BigEndian.PutUint16(b[:], uint16(port))
}

func getPort(field *uint16) int {
	b := (*[2]byte)(unsafe.Pointer(field))
	return int(binary.BigEndian.Uint16(b[:]))
}
