package engines

import (
	"fmt"
	"sort"
	"strings"
)

// #region settings
// Settings selects an implementation per role and configures the stand-ins.
type Settings struct {
	// Prefs maps a role to its requested implementation. Absent roles use
	// the stand-in.
	Prefs      map[Role]Preference
	RemoteAddr string

	Hebbian   HebbianConfig
	Landscape ManifoldConfig
	Hopfield  HopfieldConfig
}

// DefaultSettings resolves every role to its stand-in.
func DefaultSettings() Settings {
	return Settings{
		Prefs:     map[Role]Preference{},
		Hebbian:   DefaultHebbianConfig(),
		Landscape: DefaultManifoldConfig(),
		Hopfield:  DefaultHopfieldConfig(),
	}
}

// #endregion settings

// #region resolution
// Choice records which implementation serves a role and why.
type Choice struct {
	Role   Role   `json:"role" yaml:"role"`
	Impl   string `json:"impl" yaml:"impl"`
	Reason string `json:"reason" yaml:"reason"`
}

func (c Choice) String() string {
	return fmt.Sprintf("%s=%s (%s)", c.Role, c.Impl, c.Reason)
}

// Resolution is the set of engines chosen for a run.
type Resolution struct {
	Choices []Choice

	Weights  WeightGenerator
	Manifold ManifoldBuilder
	Dynamics DynamicsIntegrator
	History  HistoryRecorder

	remote Remote
}

// Close releases the remote engine, if one was dialed.
func (r *Resolution) Close() error {
	if r == nil || r.remote == nil {
		return nil
	}
	return r.remote.Close()
}

// Choice returns the choice made for role.
func (r *Resolution) Choice(role Role) (Choice, bool) {
	for _, c := range r.Choices {
		if c.Role == role {
			return c, true
		}
	}
	return Choice{}, false
}

// #endregion resolution

// #region resolve
// Resolve picks the implementation for every role. A role preferring the
// remote engine gets it or Resolve fails; there is no fallback to the
// stand-in.
func Resolve(s Settings, dial Dialer) (*Resolution, error) {
	var remoteRoles []string
	for role, pref := range s.Prefs {
		if !knownRole(role) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
		switch pref {
		case "", PrefStandin:
		case PrefRemote:
			remoteRoles = append(remoteRoles, string(role))
		default:
			return nil, fmt.Errorf("%w: %s=%q", ErrUnknownPref, role, pref)
		}
	}
	sort.Strings(remoteRoles)

	res := &Resolution{}
	if len(remoteRoles) > 0 {
		if s.RemoteAddr == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoRemoteAddr, strings.Join(remoteRoles, ","))
		}
		if dial == nil {
			return nil, ErrNoDialer
		}
		r, err := dial(s.RemoteAddr)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: dial %s: %w", strings.Join(remoteRoles, ","), s.RemoteAddr, err)
		}
		res.remote = r
	}

	for _, role := range Roles {
		pref, explicit := s.Prefs[role]
		if pref == PrefRemote {
			res.bindRemote(role)
			res.Choices = append(res.Choices, Choice{
				Role:   role,
				Impl:   "remote:" + res.remote.Addr(),
				Reason: "preferred",
			})
			continue
		}
		impl := res.bindStandin(role, s)
		reason := "default"
		if explicit && pref != "" {
			reason = "preferred"
		}
		res.Choices = append(res.Choices, Choice{Role: role, Impl: impl, Reason: reason})
	}
	return res, nil
}

func (r *Resolution) bindRemote(role Role) {
	switch role {
	case RoleWeights:
		r.Weights = r.remote
	case RoleManifold:
		r.Manifold = r.remote
	case RoleDynamics:
		r.Dynamics = r.remote
	case RoleHistory:
		r.History = r.remote
	}
}

func (r *Resolution) bindStandin(role Role, s Settings) string {
	switch role {
	case RoleWeights:
		r.Weights = NewHebbian(s.Hebbian)
		return "standin:hebbian"
	case RoleManifold:
		r.Manifold = NewManifold(s.Landscape)
		return "standin:manifold"
	case RoleDynamics:
		r.Dynamics = NewHopfield(s.Hopfield)
		return "standin:hopfield"
	case RoleHistory:
		r.History = NewRecorder()
		return "standin:recorder"
	}
	return ""
}

func knownRole(role Role) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// #endregion resolve
