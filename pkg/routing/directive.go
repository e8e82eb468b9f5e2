package routing

import (
	"fmt"
	"strconv"
	"strings"
)

// unixPathPrefix marks a backend address as a unix domain socket path.
const unixPathPrefix = "unix:"

// ParseBackend parses a backend directive of the form
//
//	[unix:]<host>,<port>[;<pattern1>:<pattern2>:...]
//
// The portion before ';' is the backend address; the portion after it is
// the raw pattern list handed to Builder.AddMapping (empty when the
// directive has no ';', which maps to the catch-all pattern "/").
func ParseBackend(directive string) (Backend, string, error) {
	addrPart := directive
	patterns := ""
	if i := strings.IndexByte(directive, ';'); i != -1 {
		addrPart = directive[:i]
		patterns = directive[i+1:]
	}
	// We may introduce a new parameter after an additional ';', so don't
	// allow extra ';' in the pattern list for now.
	if strings.IndexByte(patterns, ';') != -1 {
		return Backend{}, "", fmt.Errorf("backend: ';' must not be used in pattern: %q", directive)
	}

	if hasUnixPrefix(addrPart) {
		path := addrPart[len(unixPathPrefix):]
		if path == "" {
			return Backend{}, "", fmt.Errorf("backend: empty unix socket path: %q", directive)
		}
		return Backend{Host: path, HostUnix: true}, patterns, nil
	}

	host, port, err := splitHostPort(addrPart)
	if err != nil {
		return Backend{}, "", err
	}
	return Backend{Host: host, Port: port}, patterns, nil
}

func hasUnixPrefix(s string) bool {
	return len(s) >= len(unixPathPrefix) && strings.EqualFold(s[:len(unixPathPrefix)], unixPathPrefix)
}

// splitHostPort splits "host,port". Host and port are separated by a
// single ','.
func splitHostPort(hostport string) (string, uint16, error) {
	i := strings.IndexByte(hostport, ',')
	if i == -1 {
		return "", 0, fmt.Errorf("invalid host, port: %q", hostport)
	}
	host := hostport[:i]
	if host == "" {
		return "", 0, fmt.Errorf("empty host: %q", hostport)
	}
	port, err := strconv.ParseUint(hostport[i+1:], 10, 16)
	if err != nil || port == 0 {
		return "", 0, fmt.Errorf("port is invalid: %q", hostport[i+1:])
	}
	return host, uint16(port), nil
}
