// Copyright 2025 Open Network Fabric Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package adjacency

import (
	"bytes"
	"context"
	"net"
	"time"

	"github.com/mdlayher/arp"
	"github.com/mdlayher/ethernet"

	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// defaultProbeTimeout bounds one ARP exchange.
const defaultProbeTimeout = 2 * time.Second

// ARPProber resolves IPv4 neighbors over the OS packet socket. IPv6
// neighbor discovery is handled by the kernel and picked up through the
// netlink reconciliation, not probed here.
type ARPProber struct {
	// Timeout bounds one exchange; defaultProbeTimeout when zero.
	Timeout time.Duration
}

func (p *ARPProber) Probe(ctx context.Context, key Key) (nettype.Mac, error) {
	if !key.Addr.Is4() {
		return nettype.Mac{}, serrors.New("arp prober handles IPv4 only",
			"addr", key.Addr)
	}
	ifi, err := net.InterfaceByIndex(int(key.Ifindex))
	if err != nil {
		return nettype.Mac{}, serrors.Wrap("looking up interface", err,
			"ifindex", key.Ifindex)
	}
	client, err := arp.Dial(ifi)
	if err != nil {
		return nettype.Mac{}, serrors.Wrap("opening arp socket", err,
			"ifindex", key.Ifindex)
	}
	defer client.Close()

	timeout := p.Timeout
	if timeout == 0 {
		timeout = defaultProbeTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := client.SetDeadline(deadline); err != nil {
		return nettype.Mac{}, serrors.Wrap("setting arp deadline", err)
	}

	hw, err := client.Resolve(key.Addr)
	if err != nil {
		return nettype.Mac{}, serrors.Wrap("resolving neighbor", err,
			"key", key)
	}
	if len(hw) != 6 || bytes.Equal(hw, ethernet.Broadcast) {
		return nettype.Mac{}, serrors.New("unusable hardware address",
			"key", key, "hw", hw.String())
	}
	var mac nettype.Mac
	copy(mac[:], hw)
	if mac.IsZero() || mac.IsMulticast() {
		return nettype.Mac{}, serrors.New("unusable hardware address",
			"key", key, "hw", hw.String())
	}
	return mac, nil
}
