package anonymize

import (
	"net/netip"
	"strconv"
	"strings"
)

// ipStrategy masks IPv4 and IPv6 addresses.
//
//	level   IPv4              IPv6
//	low     a.b.c.x           last 16 bits masked
//	medium  a.b.x.x           last 32 bits masked
//	high    a.x.x.x           first 64 bits kept
//	full    anon-ipv4-<hash>  anon-ipv6-<hash>
type ipStrategy struct{}

func (ipStrategy) Category() Category { return CategoryIPAddress }

func (ipStrategy) Validate(value string) bool {
	_, err := netip.ParseAddr(value)
	return err == nil
}

func (s ipStrategy) Anonymize(value string, level Level) string {
	if level == LevelNone {
		return value
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return "invalid-ip-" + digest8(value)
	}
	// mapped addresses are masked as the IPv4 address they carry
	if addr.Is4() || addr.Is4In6() {
		return s.anonymizeV4(addr.Unmap(), value, level)
	}
	return s.anonymizeV6(addr.WithZone(""), value, level)
}

func (ipStrategy) anonymizeV4(addr netip.Addr, value string, level Level) string {
	if level >= LevelFull {
		return "anon-ipv4-" + digest8(value)
	}
	o := addr.As4()
	octets := []string{
		strconv.Itoa(int(o[0])), strconv.Itoa(int(o[1])),
		strconv.Itoa(int(o[2])), strconv.Itoa(int(o[3])),
	}
	// low masks one octet, medium two, high three
	keep := 4 - int(level)
	for i := keep; i < 4; i++ {
		octets[i] = "x"
	}
	return strings.Join(octets, ".")
}

func (ipStrategy) anonymizeV6(addr netip.Addr, value string, level Level) string {
	if level >= LevelFull {
		return "anon-ipv6-" + digest8(value)
	}
	b := addr.As16()
	groups := make([]string, 8)
	for i := range groups {
		groups[i] = strconv.FormatUint(uint64(b[2*i])<<8|uint64(b[2*i+1]), 16)
	}
	var masked int
	switch level {
	case LevelLow:
		masked = 1
	case LevelMedium:
		masked = 2
	default:
		masked = 4
	}
	for i := 8 - masked; i < 8; i++ {
		groups[i] = "x"
	}
	return strings.Join(groups, ":")
}
