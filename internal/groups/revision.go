package groups

import (
	"fmt"
	"strconv"
)

// FormatRevision renders a revision counter as the opaque token handed to
// transports.
func FormatRevision(rev int64) string {
	return strconv.FormatInt(rev, 10)
}

// ParseRevision is the inverse of FormatRevision. The empty token means
// "no record expected" and is reported with ok == false.
func ParseRevision(token string) (rev int64, ok bool, err error) {
	if token == "" {
		return 0, false, nil
	}
	rev, err = strconv.ParseInt(token, 10, 64)
	if err != nil || rev < 0 {
		return 0, false, fmt.Errorf("invalid revision %q", token)
	}
	return rev, true, nil
}
