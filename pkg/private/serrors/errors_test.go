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

package serrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

func TestWrapSupportsIs(t *testing.T) {
	sentinel := errors.New("no route to host")
	err := serrors.Wrap("lookup failed", sentinel, "vrf", "default")
	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, err, err)
}

func TestJoinSupportsIs(t *testing.T) {
	base := errors.New("bad mtu")
	cause := errors.New("value out of range")
	err := serrors.Join(base, cause, "mtu", 100)
	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, cause)

	assert.NoError(t, serrors.Join(nil, nil))
}

func TestErrorFormat(t *testing.T) {
	err := serrors.New("parse failed", "expected", 14, "actual", 9)
	assert.Equal(t, "parse failed {actual=9; expected=14}", err.Error())

	wrapped := serrors.Wrap("ingress", err)
	assert.Contains(t, wrapped.Error(), "parse failed")
}

func TestList(t *testing.T) {
	var errs serrors.List
	assert.NoError(t, errs.ToError())
	errs = append(errs, serrors.New("a"), serrors.New("b"))
	assert.Error(t, errs.ToError())
	assert.Equal(t, "[ a; b ]", errs.Error())
}
