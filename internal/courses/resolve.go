package courses

import "sort"

type Strategy int

const (
	// StrategyCodeAlias matches code, alternate code, short code or base code.
	StrategyCodeAlias Strategy = iota
	// StrategyExactKey is a literal storage key.
	StrategyExactKey
	// StrategyMetadataScan matches unique code, base code, name or short name.
	StrategyMetadataScan
	// StrategyFallback means nothing matched and the identifier is returned as is.
	StrategyFallback
)

func (s Strategy) String() string {
	switch s {
	case StrategyCodeAlias:
		return "code-alias"
	case StrategyExactKey:
		return "exact-key"
	case StrategyMetadataScan:
		return "metadata-scan"
	default:
		return "fallback"
	}
}

type Resolution struct {
	Key      string   `json:"key"`
	Strategy Strategy `json:"-"`
	Found    bool     `json:"found"`
}

type resolver func(id string, rs rosters, ms metas) (string, bool)

var strategies = []struct {
	kind Strategy
	fn   resolver
}{
	{StrategyCodeAlias, byCodeAlias},
	{StrategyExactKey, byExactKey},
	{StrategyMetadataScan, byMetadataScan},
}

func resolve(id string, rs rosters, ms metas) Resolution {
	for _, s := range strategies {
		if key, ok := s.fn(id, rs, ms); ok {
			return Resolution{Key: key, Strategy: s.kind, Found: true}
		}
	}
	return Resolution{Key: id, Strategy: StrategyFallback}
}

func byCodeAlias(id string, _ rosters, ms metas) (string, bool) {
	for _, key := range sortedKeys(ms) {
		m := ms[key]
		for _, code := range []string{m.Code, m.AltCode, m.ShortCode, m.BaseCode} {
			if code != "" && code == id {
				return key, true
			}
		}
	}
	return "", false
}

func byExactKey(id string, rs rosters, ms metas) (string, bool) {
	if _, ok := ms[id]; ok {
		return id, true
	}
	if _, ok := rs[id]; ok {
		return id, true
	}
	return "", false
}

func byMetadataScan(id string, _ rosters, ms metas) (string, bool) {
	for _, key := range sortedKeys(ms) {
		m := ms[key]
		for _, field := range []string{m.Key, m.BaseCode, m.Name, m.ShortName} {
			if field != "" && field == id {
				return key, true
			}
		}
	}
	return "", false
}

func sortedKeys(ms metas) []string {
	keys := make([]string, 0, len(ms))
	for k := range ms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// refs lists key first, then the codes of key that no other course claims.
func refs(key string, ms metas) []string {
	m, ok := ms[key]
	if !ok {
		return []string{key}
	}
	claimed := map[string]bool{}
	for k, other := range ms {
		if k == key {
			continue
		}
		for _, code := range []string{other.Code, other.AltCode, other.ShortCode} {
			claimed[code] = true
		}
	}

	out := []string{key}
	seen := map[string]bool{key: true}
	for _, code := range []string{m.Code, m.AltCode, m.ShortCode} {
		if code == "" || seen[code] || claimed[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
