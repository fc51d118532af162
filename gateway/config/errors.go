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

package config

import "github.com/opennetfabric/gateway/pkg/private/serrors"

// Configuration errors. Validation surfaces exactly one of these, wrapped
// with the offending object's context; no partial state is committed.
var (
	ErrDuplicateVpcName          = serrors.New("duplicate vpc name")
	ErrDuplicateVpcId            = serrors.New("duplicate vpc id")
	ErrDuplicateVpcVni           = serrors.New("duplicate vpc vni")
	ErrDuplicateVpcPeeringId     = serrors.New("duplicate vpc peering id")
	ErrNoSuchVpc                 = serrors.New("no such vpc")
	ErrInvalidVpcVni             = serrors.New("invalid vpc vni")
	ErrBadMtu                    = serrors.New("bad mtu")
	ErrExcludedAllPrefixes       = serrors.New("all prefixes excluded")
	ErrOutOfRangeExclusionPrefix = serrors.New("exclusion prefix outside included prefixes")
	ErrOverlappingPrefixes       = serrors.New("overlapping prefixes")
	ErrInconsistentIpVersion     = serrors.New("inconsistent ip version")
	ErrMismatchedPrefixSizes     = serrors.New("mismatched prefix sizes")
	ErrMissingParameter          = serrors.New("missing parameter")
	ErrTooManyInstances          = serrors.New("too many instances")
	ErrInternalFailure           = serrors.New("internal failure")
)
