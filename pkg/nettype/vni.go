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

package nettype

import (
	"strconv"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// Vni is a VXLAN network identifier: a non-zero 24-bit value. The zero value
// of the type is invalid and means "unset".
type Vni uint32

// MaxVni is the largest valid VNI (2^24 - 1).
const MaxVni = 1<<24 - 1

// NewVni validates v as a VXLAN network identifier.
func NewVni(v uint32) (Vni, error) {
	if v == 0 || v > MaxVni {
		return 0, serrors.New("VNI out of range", "vni", v)
	}
	return Vni(v), nil
}

// MustVni validates v and panics on invalid input. For tests.
func MustVni(v uint32) Vni {
	vni, err := NewVni(v)
	if err != nil {
		panic(err)
	}
	return vni
}

// IsValid reports whether the VNI holds a value in 1..=MaxVni.
func (v Vni) IsValid() bool {
	return v != 0 && v <= MaxVni
}

func (v Vni) String() string {
	return strconv.FormatUint(uint64(v), 10)
}
