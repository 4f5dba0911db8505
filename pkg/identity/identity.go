// Package identity derives a stable node id for status reporting.
package identity

import (
	"fmt"
	"os"

	"github.com/denisbrodbeck/machineid"
)

// AppID scopes the protected machine id so the raw host id never leaves the box.
const AppID = "conditional-order-triggers"

var protectedID = machineid.ProtectedID

// NodeID returns an app-scoped machine id, shortened for display. When the
// host exposes no machine id it falls back to the hostname.
func NodeID() (string, error) {
	id, err := protectedID(AppID)
	if err == nil {
		return short(id), nil
	}
	host, herr := os.Hostname()
	if herr != nil {
		return "", fmt.Errorf("machine id: %w", err)
	}
	return host, nil
}

func short(id string) string {
	if len(id) > 16 {
		return id[:16]
	}
	return id
}
