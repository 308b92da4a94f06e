package lipid

import (
	"fmt"
	"strings"
)

var sphTypes = map[string]bool{"d": true, "dh": true, "t": true, "k": true}

// ParseHeadgroup builds a headgroup from its main class and a
// ";"-separated subclass list.
func ParseHeadgroup(main, subs string) (Headgroup, error) {
	h := Headgroup{Main: strings.TrimSpace(main)}
	if h.Main == "" {
		return Headgroup{}, fmt.Errorf("headgroup is required")
	}
	for _, s := range strings.Split(subs, ";") {
		if s = strings.TrimSpace(s); s != "" {
			h.Sub = append(h.Sub, s)
		}
	}
	return h, nil
}

// ParseChainLayout parses a per-position layout such as "Sph:d,FA",
// "FAL,FA" or "Sph:t,FA:2OH". The first attribute of a sphingoid base is
// its subtype (default "d"); other attributes are hydroxyl tags.
func ParseChainLayout(s string) ([]string, []ChainAttr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, nil
	}
	var types []string
	var attrs []ChainAttr
	for _, pos := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(pos), ":")
		typ := parts[0]
		var attr ChainAttr
		switch typ {
		case FA:
		case FAL:
			attr.Ether = true
		case Sph:
			attr.Sph = "d"
			if len(parts) > 1 && sphTypes[parts[1]] {
				attr.Sph = parts[1]
				parts = parts[1:]
			}
		default:
			return nil, nil, fmt.Errorf("unknown chain type '%s' in layout '%s'", typ, s)
		}
		for _, tag := range parts[1:] {
			if !strings.HasSuffix(tag, "OH") {
				return nil, nil, fmt.Errorf("invalid chain attribute '%s' in layout '%s'", tag, s)
			}
			attr.OH = append(attr.OH, tag)
		}
		types = append(types, typ)
		attrs = append(attrs, attr)
	}
	return types, attrs, nil
}
