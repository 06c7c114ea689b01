package config

import "errors"

// ErrUnknownProfile is returned when applying a profile that does not exist.
var ErrUnknownProfile = errors.New("unknown profile")

// profileOrder is the hotkey cycle order.
var profileOrder = []string{"aggressive", "balanced", "stealth", "sniper"}

func profiles() map[string]*Config {
	return map[string]*Config{
		"aggressive": {
			Confidence:    ptrFloat64(0.20),
			AimSmooth:     ptrFloat64(0.6),
			ReactionDelay: ptrFloat64(0.01),
			BurstMode:     ptrBool(true),
			BurstCount:    ptrInt(5),
		},
		"balanced": {
			Confidence:    ptrFloat64(0.25),
			AimSmooth:     ptrFloat64(0.4),
			ReactionDelay: ptrFloat64(0.02),
			BurstMode:     ptrBool(false),
		},
		"stealth": {
			Confidence:    ptrFloat64(0.35),
			AimSmooth:     ptrFloat64(0.3),
			ReactionDelay: ptrFloat64(0.05),
			BurstMode:     ptrBool(false),
		},
		"sniper": {
			Confidence:    ptrFloat64(0.40),
			AimSmooth:     ptrFloat64(0.2),
			ReactionDelay: ptrFloat64(0.03),
			HeadshotMode:  ptrBool(true),
			BurstMode:     ptrBool(false),
		},
	}
}

// ProfileNames lists the built-in profiles in cycle order.
func ProfileNames() []string {
	out := make([]string, len(profileOrder))
	copy(out, profileOrder)
	return out
}

// Profile returns a fresh copy of the named partial configuration.
func Profile(name string) (*Config, bool) {
	p, ok := profiles()[name]
	return p, ok
}

// NextProfile returns the profile after current in the cycle. Unknown names
// restart the cycle at the first profile.
func NextProfile(current string) string {
	for i, name := range profileOrder {
		if name == current {
			return profileOrder[(i+1)%len(profileOrder)]
		}
	}
	return profileOrder[0]
}
