package main

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
)

// boltBootSignature is the Bolt protocol's fixed 4-byte handshake magic
// (sent ahead of the four 4-byte version proposals), mirrored
// here rather than imported from internal/bolt since it is wire-protocol
// constant, not an internal implementation detail this CLI depends on.
var boltBootSignature = [4]byte{0x60, 0x60, 0xB0, 0x17}

var boltPingTimeout time.Duration

var boltCmd = &cobra.Command{
	Use:   "bolt",
	Short: "Bolt wire-protocol operations",
}

var boltPingCmd = &cobra.Command{
	Use:   "ping <addr>",
	Short: "Dial a ClickGraph Bolt listener and report the negotiated protocol version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cliLog.WithField("addr", args[0]).Debug("dialing bolt listener")
		conn, err := net.DialTimeout("tcp", args[0], boltPingTimeout)
		if err != nil {
			return fmt.Errorf("dial failed: %w", err)
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(boltPingTimeout))

		if _, err := conn.Write(boltBootSignature[:]); err != nil {
			return fmt.Errorf("write signature: %w", err)
		}
		cliLog.Debug("boot signature sent, proposing protocol versions")
		proposals := make([]byte, 16)
		binary.BigEndian.PutUint32(proposals[0:4], uint32(8)<<8|uint32(5))
		binary.BigEndian.PutUint32(proposals[4:8], uint32(4)<<8|uint32(4))
		if _, err := conn.Write(proposals); err != nil {
			return fmt.Errorf("write proposals: %w", err)
		}

		resp := make([]byte, 4)
		if _, err := conn.Read(resp); err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp[0] == 0 && resp[1] == 0 && resp[2] == 0 && resp[3] == 0 {
			return fmt.Errorf("server rejected all proposed versions")
		}
		fmt.Printf("OK: negotiated Bolt %d.%d\n", resp[3], resp[2])
		return nil
	},
}

func init() {
	boltPingCmd.Flags().DurationVar(&boltPingTimeout, "timeout", 5*time.Second, "dial/handshake timeout")
	boltCmd.AddCommand(boltPingCmd)
}
