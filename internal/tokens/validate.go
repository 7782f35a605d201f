package tokens

import (
	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

var (
	// ErrInvalidTokenSet is returned when a token set cannot be decoded or
	// violates the naming rules.
	ErrInvalidTokenSet = zerr.New("invalid token set")

	// ErrMissingTokenSet is returned when a pipeline is invoked without a set.
	ErrMissingTokenSet = zerr.New("missing token set")
)

// Validate checks that every token has a name that slugs to something
// non-empty and that names are unique per category once slugged.
func (s *Set) Validate() error {
	if s == nil {
		return ErrMissingTokenSet
	}

	for _, c := range Categories {
		if err := validateGroup(string(c), s.Group(c)); err != nil {
			return err
		}
	}

	states := map[string]Group{
		"hover":    s.States.Hover,
		"focus":    s.States.Focus,
		"active":   s.States.Active,
		"disabled": s.States.Disabled,
		"loading":  s.States.Loading,
	}
	for name, g := range states {
		for _, e := range g {
			if e.Name == "" {
				return zerr.With(zerr.Wrap(ErrInvalidTokenSet, "state property without a name"), "state", name)
			}
		}
	}
	return nil
}

func validateGroup(category string, g Group) error {
	seen := make(map[string]string, len(g))
	for _, e := range g {
		s := Slug(e.Name)
		if s == "" {
			err := zerr.With(zerr.Wrap(ErrInvalidTokenSet, "token name is empty"), "category", category)
			return zerr.With(err, "name", e.Name)
		}
		if prev, ok := seen[s]; ok {
			err := zerr.With(zerr.Wrap(ErrInvalidTokenSet, "duplicate token name"), "category", category)
			err = zerr.With(err, "name", e.Name)
			return zerr.With(err, "conflicts_with", prev)
		}
		if e.Value.Primary() == "" {
			err := zerr.With(zerr.Wrap(ErrInvalidTokenSet, "token has no value"), "category", category)
			return zerr.With(err, "name", e.Name)
		}
		seen[s] = e.Name
	}
	return nil
}

// Fingerprint writes a deterministic byte image of the set into hasher.
func (s *Set) Fingerprint(hasher *xxhash.Digest) {
	if s == nil {
		_, _ = hasher.Write([]byte{0})
		return
	}

	_, _ = hasher.WriteString(s.Name)
	_, _ = hasher.Write([]byte{0})

	for _, c := range Categories {
		_, _ = hasher.WriteString(string(c))
		_, _ = hasher.Write([]byte{0})
		hashGroup(s.Group(c), hasher)
	}

	for _, g := range []Group{s.States.Hover, s.States.Focus, s.States.Active, s.States.Disabled, s.States.Loading} {
		hashGroup(g, hasher)
	}
}

func hashGroup(g Group, hasher *xxhash.Digest) {
	for _, e := range g {
		_, _ = hasher.WriteString(e.Name)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(e.Value.Value)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(e.Value.Light)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(e.Value.Dark)
		_, _ = hasher.Write([]byte{0})
	}
	_, _ = hasher.Write([]byte{0}) // Section separator
}
