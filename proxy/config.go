package proxy

// Type selects the proxy controller's role, spec.md §4.G. Hybrid is
// declared but unimplemented — DESIGN.md's Open Question decision 3.
type Type int

const (
	TypeParent Type = iota
	TypeChild
	TypeHybrid
)

func (t Type) String() string {
	switch t {
	case TypeParent:
		return "Parent"
	case TypeChild:
		return "Child"
	case TypeHybrid:
		return "Hybrid"
	default:
		return "Unknown"
	}
}

// Config is the proxy controller's configuration surface, spec.md §4.G.
// Name is not in the spec's enumerated list but is needed to build the
// "<proxyName>-<origin>" sender tag step 6 of the inbound pipeline
// requires; it defaults to the controller's bus id if left empty.
type Config struct {
	Name                 string
	AcceptedOrigins      []string
	TargetAllFrames      bool
	TargetSpecificFrames []string
	ProtectedChannels    []string
	ParentOrigin         string
	ProxyType            Type
}

// Validate reports InvalidConfiguration per spec.md §7: a Hybrid
// controller, a Child with no parent origin to post to, or a Parent with
// no accepted origins to validate inbound traffic against.
func (c Config) Validate() error {
	switch c.ProxyType {
	case TypeHybrid:
		return ErrInvalidConfiguration
	case TypeChild:
		if c.ParentOrigin == "" {
			return ErrInvalidConfiguration
		}
	case TypeParent:
		if len(c.AcceptedOrigins) == 0 {
			return ErrInvalidConfiguration
		}
	default:
		return ErrInvalidConfiguration
	}
	return nil
}

func (c Config) originAllowed(origin string) bool {
	for _, o := range c.AcceptedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (c Config) channelAuthorized(channel string) bool {
	if channel == string(ControlChannelName) {
		return true
	}
	for _, protected := range c.ProtectedChannels {
		if protected == channel {
			return true
		}
	}
	return false
}
