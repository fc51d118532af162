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

package nettype_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opennetfabric/gateway/pkg/nettype"
)

func TestVni(t *testing.T) {
	testCases := map[string]struct {
		value     uint32
		assertErr assert.ErrorAssertionFunc
	}{
		"zero is reserved":  {0, assert.Error},
		"smallest":          {1, assert.NoError},
		"largest":           {1<<24 - 1, assert.NoError},
		"one past largest":  {1 << 24, assert.Error},
		"way out of range":  {1 << 30, assert.Error},
		"typical tenant id": {3000, assert.NoError},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := nettype.NewVni(tc.value)
			tc.assertErr(t, err)
		})
	}
}

func TestVid(t *testing.T) {
	testCases := map[string]struct {
		value     uint16
		assertErr assert.ErrorAssertionFunc
	}{
		"zero is reserved": {0, assert.Error},
		"smallest":         {1, assert.NoError},
		"largest":          {4094, assert.NoError},
		"4095 is reserved": {4095, assert.Error},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := nettype.NewVid(tc.value)
			tc.assertErr(t, err)
		})
	}
}

func TestPorts(t *testing.T) {
	_, err := nettype.NewTcpPort(0)
	assert.Error(t, err)
	_, err = nettype.NewUdpPort(0)
	assert.Error(t, err)
	_, err = nettype.NewNatPort(0)
	assert.Error(t, err)
	_, err = nettype.NewTcpPort(179)
	assert.NoError(t, err)
	_, err = nettype.NewUdpPort(4789)
	assert.NoError(t, err)
}

func TestMtu(t *testing.T) {
	_, err := nettype.NewMtu(1279)
	assert.Error(t, err)
	_, err = nettype.NewMtu(1280)
	assert.NoError(t, err)
	_, err = nettype.NewMtu(9000)
	assert.NoError(t, err)
}

func TestSourceMac(t *testing.T) {
	_, err := nettype.NewSourceMac(nettype.Mac{})
	assert.Error(t, err, "zero source MAC must be rejected")
	_, err = nettype.NewSourceMac(nettype.Broadcast)
	assert.Error(t, err, "multicast source MAC must be rejected")
	src, err := nettype.NewSourceMac(nettype.MustParseMac("02:00:00:00:00:01"))
	require.NoError(t, err)
	assert.Equal(t, "02:00:00:00:00:01", src.String())

	// Destination accepts anything.
	dst := nettype.NewDestinationMac(nettype.Broadcast)
	assert.True(t, dst.Mac().IsBroadcast())
}

func TestUnicastAddr(t *testing.T) {
	_, err := nettype.ParseUnicastAddr("224.0.0.1")
	assert.Error(t, err)
	_, err = nettype.ParseUnicastAddr("ff02::1")
	assert.Error(t, err)
	a, err := nettype.ParseUnicastAddr("192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.0.2.1"), a.Addr())
}

func TestParsePrefix(t *testing.T) {
	_, err := nettype.ParsePrefix("10.0.0.1/8")
	assert.Error(t, err, "host bits must be zero")
	p, err := nettype.ParsePrefix("10.0.0.0/8")
	require.NoError(t, err)
	assert.Equal(t, 8, p.Bits())
	_, err = nettype.ParsePrefix("2001:db8::/32")
	assert.NoError(t, err)
}
