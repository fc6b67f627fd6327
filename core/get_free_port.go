package core

import (
	"fmt"
	"net"

	"golang.org/x/exp/rand"
)

// GetFreePort picks an unused port in the dynamic range for a
// spawned handler process.
func GetFreePort() int32 {
	for {
		port := 49152 + rand.Int31n(16383)
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err != nil {
			continue
		}
		err = listener.Close()
		if err != nil {
			continue
		}
		return port
	}
}
