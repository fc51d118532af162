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

package headers

import (
	"github.com/gopacket/gopacket"
)

// Layer type identifiers, registered in the private range so that packages
// importing gopacket/layers can coexist with this codec.
var (
	LayerTypeEthernet = gopacket.RegisterLayerType(
		1100,
		gopacket.LayerTypeMetadata{Name: "FabricEthernet"},
	)
	LayerTypeDot1Q = gopacket.RegisterLayerType(
		1101,
		gopacket.LayerTypeMetadata{Name: "FabricDot1Q"},
	)
	LayerTypeIPv4 = gopacket.RegisterLayerType(
		1102,
		gopacket.LayerTypeMetadata{Name: "FabricIPv4"},
	)
	LayerTypeIPv6 = gopacket.RegisterLayerType(
		1103,
		gopacket.LayerTypeMetadata{Name: "FabricIPv6"},
	)
	LayerTypeIPExtension = gopacket.RegisterLayerType(
		1104,
		gopacket.LayerTypeMetadata{Name: "FabricIPExtension"},
	)
	LayerTypeTCP = gopacket.RegisterLayerType(
		1105,
		gopacket.LayerTypeMetadata{Name: "FabricTCP"},
	)
	LayerTypeUDP = gopacket.RegisterLayerType(
		1106,
		gopacket.LayerTypeMetadata{Name: "FabricUDP"},
	)
	LayerTypeICMPv4 = gopacket.RegisterLayerType(
		1107,
		gopacket.LayerTypeMetadata{Name: "FabricICMPv4"},
	)
	LayerTypeICMPv6 = gopacket.RegisterLayerType(
		1108,
		gopacket.LayerTypeMetadata{Name: "FabricICMPv6"},
	)
	LayerTypeVXLAN = gopacket.RegisterLayerType(
		1109,
		gopacket.LayerTypeMetadata{Name: "FabricVXLAN"},
	)
)
