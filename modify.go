// FILE: lixenwraith/nodeconf/modify.go
package nodeconf

// Modify walks the non-void children of other against s and reports whether
// they differ. Keys or dotted paths listed in excluded are skipped,
// case-insensitively. Matching sections are compared recursively.
//
// With compareOnly the walk stops at the first difference. Otherwise the
// value of every entry of s that differs from its counterpart in other is
// overwritten and the walk continues to the end. Keys missing from s count
// as differences but are never added, and children of mismatched kinds are
// left untouched.
func (s Section) Modify(other Section, compareOnly bool, excluded ...string) bool {
	return s.modify(other, compareOnly, newExclusions(excluded))
}

// Compare reports whether other has keys or entry values that s lacks or
// holds differently.
func (s Section) Compare(other Section, excluded ...string) bool {
	return s.Modify(other, true, excluded...)
}

// SetValues copies entry values from other into s and reports whether
// anything differed.
func (s Section) SetValues(other Section, excluded ...string) bool {
	return s.Modify(other, false, excluded...)
}

// Missing returns the paths of keyed nodes in other that s lacks. A missing
// section is listed once, without its descendants.
func (s Section) Missing(other Section) []string {
	var missing []string
	for o := range other.Nodes() {
		key := o.Key()
		if key == "" {
			continue
		}
		n, ok := s.Get(key)
		if !ok {
			missing = append(missing, o.Path())
			continue
		}
		oSec, oIsSec := o.AsSection()
		nSec, nIsSec := n.AsSection()
		if oIsSec && nIsSec {
			missing = append(missing, nSec.Missing(oSec)...)
		}
	}
	return missing
}

func (s Section) modify(other Section, compareOnly bool, ex exclusions) bool {
	differs := false
	for o := range other.Nodes() {
		key := o.Key()
		if key == "" || ex.match(key, o.Path()) {
			continue
		}

		n, ok := s.Get(key)
		if !ok {
			if compareOnly {
				return true
			}
			differs = true
			continue
		}

		oSec, oIsSec := o.AsSection()
		nSec, nIsSec := n.AsSection()
		switch {
		case oIsSec && nIsSec:
			if nSec.modify(oSec, compareOnly, ex) {
				if compareOnly {
					return true
				}
				differs = true
			}
		case o.Kind() != n.Kind():
			if compareOnly {
				return true
			}
			differs = true
		case o.Kind() == KindEntry:
			ov, nv := o.data().value, n.data().value
			if ov == nv {
				continue
			}
			if compareOnly {
				return true
			}
			n.data().value = ov
			differs = true
		}
	}
	return differs
}

// exclusions matches keys and dotted paths case-insensitively.
type exclusions map[string]struct{}

func newExclusions(keys []string) exclusions {
	if len(keys) == 0 {
		return nil
	}
	ex := make(exclusions, len(keys))
	for _, k := range keys {
		ex[foldKey(k)] = struct{}{}
	}
	return ex
}

func (ex exclusions) match(key, path string) bool {
	if len(ex) == 0 {
		return false
	}
	if _, ok := ex[foldKey(key)]; ok {
		return true
	}
	_, ok := ex[foldKey(path)]
	return ok
}
