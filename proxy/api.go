package proxy

import (
	"github.com/framewire/messagebus/message"
	"github.com/framewire/messagebus/proxy/internal/relay"
)

// Public API — re-export internal types as the stable contract, matching
// kernel/api.go's and store/api.go's alias-over-internal-type convention.

// BusState is the recorded ⟨proxyType, active⟩ pair for a peer bus id,
// spec.md §3's ProxyState.
type BusState = relay.BusState

// ControlChannelName is the reserved `__proxycontrol__` channel, always
// authorized regardless of Config.ProtectedChannels (spec.md §6).
const ControlChannelName message.ChannelName = "__proxycontrol__"
